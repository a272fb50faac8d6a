package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FinUp/internal/model"
	"FinUp/internal/portfolio"
	"FinUp/internal/recorder"
)

const dateLayout = "02/01/2006"

func recommendationText(r model.Recommendation) string {
	switch r.Action {
	case model.ActionTransfer:
		from := "?"
		if r.From != nil {
			from = r.From.Label()
		}
		return fmt.Sprintf("Transferir %s do risco %s para o risco %s", FormatBRL(r.Amount), from, r.To.Label())
	case model.ActionTopUp:
		return fmt.Sprintf("Aportar %s no risco %s", FormatBRL(r.Amount), r.To.Label())
	default:
		return fmt.Sprintf("%s %s", r.Action, FormatBRL(r.Amount))
	}
}

func divestText(tiers []model.RiskTier) string {
	labels := make([]string, len(tiers))
	for i, t := range tiers {
		labels[i] = t.Label()
	}
	return "Perfil sem alocação alvo em risco " + strings.Join(labels, ", ") + ": reduzir essas posições a zero"
}

// FormatReportHTML formats an evaluation for Telegram.
func FormatReportHTML(r *portfolio.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>FinUp | Carteira</b> | %s\n", r.GeneratedAt.Format(dateLayout)))
	if r.Account != nil {
		name := r.Account.HolderName
		if name == "" {
			name = fmt.Sprintf("conta %d", r.Account.ID)
		}
		b.WriteString(fmt.Sprintf("%s | perfil %s\n", html.EscapeString(name), r.Account.Profile.Label()))
	}
	b.WriteString("\n")

	if r.Empty || r.Snapshot == nil {
		b.WriteString("Nenhum investimento ativo encontrado.\n")
		return b.String()
	}

	snap := r.Snapshot
	b.WriteString(fmt.Sprintf("Investido: %s\n", FormatBRL(snap.Invested)))
	b.WriteString(fmt.Sprintf("Valor atual: %s\n\n", FormatBRL(snap.Total)))

	b.WriteString("📈 <b>Alocação por risco:</b>\n")
	for _, d := range r.Plan.Deltas {
		mark := "✅"
		if d.OutOfBalance {
			mark = "⚠️"
		}
		b.WriteString(fmt.Sprintf("  %s %s: %s (alvo %s, %s pp) %s\n",
			mark, d.Tier.Label(), FormatPct(d.CurrentPct), FormatPct(d.TargetPct),
			strings.TrimSuffix(FormatSignedPct(d.Delta), "%"), FormatBRL(d.CurrentValue)))
	}
	b.WriteString("\n")

	writePlanHTML(&b, r.Plan)

	if n := snap.StaleCount(); n > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d cotação(ões) indisponível(is); usado o preço de compra.\n", n))
	}
	return b.String()
}

func writePlanHTML(b *strings.Builder, plan *model.Plan) {
	if plan.Balanced() {
		b.WriteString(fmt.Sprintf("💰 Carteira dentro da tolerância de %s.\n", FormatPct(plan.Tolerance)))
	} else {
		b.WriteString("💰 <b>Rebalanceamento sugerido:</b>\n")
		for i, rec := range plan.Recommendations {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, recommendationText(rec)))
		}
	}
	if len(plan.Divest) > 0 {
		b.WriteString(fmt.Sprintf("\n%s\n", divestText(plan.Divest)))
	}
}

// FormatPlanHTML formats only the rebalancing part of an evaluation.
func FormatPlanHTML(r *portfolio.Report) string {
	if r.Empty || r.Plan == nil {
		return "Nenhum investimento ativo encontrado."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚖️ <b>Rebalanceamento</b> | perfil %s\n\n", r.Plan.Profile.Label()))
	writePlanHTML(&b, r.Plan)
	return b.String()
}

// FormatHistoryHTML lists past evaluations, newest first.
func FormatHistoryHTML(events []recorder.EvaluationEvent) string {
	if len(events) == 0 {
		return "Nenhuma avaliação registrada."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Últimas avaliações</b>\n\n")
	for _, e := range events {
		status := "✅"
		if !e.Balanced {
			status = fmt.Sprintf("⚠️ %d ação(ões)", len(e.Recommendations))
		}
		if e.Empty {
			status = "vazia"
		}
		b.WriteString(fmt.Sprintf("  %s: %s %s\n", e.At.Format(dateLayout+" 15:04"), FormatBRL(e.Total), status))
	}
	return b.String()
}

// FormatReportMarkdown formats an evaluation for terminal rendering.
func FormatReportMarkdown(r *portfolio.Report) string {
	var b strings.Builder

	b.WriteString("# Carteira\n\n")
	if r.Account != nil {
		b.WriteString(fmt.Sprintf("**Conta** %d · **Perfil** %s · %s\n\n",
			r.Account.ID, r.Account.Profile.Label(), r.GeneratedAt.Format(dateLayout+" 15:04")))
	}
	if r.Empty || r.Snapshot == nil {
		b.WriteString("_Nenhum investimento ativo encontrado._\n")
		return b.String()
	}

	snap := r.Snapshot
	b.WriteString("## Investimentos\n\n")
	b.WriteString("| Tipo | Nome | Risco | Investido | Atual | Retorno |\n")
	b.WriteString("|---|---|---|---:|---:|---:|\n")
	for _, v := range snap.Valuations {
		name := v.Holding.Name
		if name == "" {
			name = v.Holding.ID
		}
		note := ""
		switch {
		case v.Invalid:
			note = " (sem preço de compra)"
		case v.Stale:
			note = " (cotação indisponível)"
		}
		b.WriteString(fmt.Sprintf("| %s | %s%s | %s | %s | %s | %s |\n",
			kindLabel(v.Holding.Kind), escapeCell(name), note, v.Holding.Tier.Label(),
			FormatBRL(v.Invested), FormatBRL(v.Value), FormatSignedPct(v.ReturnPct)))
	}
	b.WriteString(fmt.Sprintf("\n**Investido** %s · **Atual** %s\n\n", FormatBRL(snap.Invested), FormatBRL(snap.Total)))

	b.WriteString("## Alocação\n\n")
	b.WriteString("| Risco | Atual | Alvo | Desvio | Valor |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, d := range r.Plan.Deltas {
		label := d.Tier.Label()
		if d.OutOfBalance {
			label += " ⚠"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			label, FormatPct(d.CurrentPct), FormatPct(d.TargetPct), FormatSignedPct(d.Delta), FormatBRL(d.CurrentValue)))
	}
	b.WriteString("\n## Rebalanceamento\n\n")
	if r.Plan.Balanced() {
		b.WriteString(fmt.Sprintf("Carteira dentro da tolerância de %s.\n", FormatPct(r.Plan.Tolerance)))
	}
	for i, rec := range r.Plan.Recommendations {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, recommendationText(rec)))
	}
	if len(r.Plan.Divest) > 0 {
		b.WriteString(fmt.Sprintf("\n> %s\n", divestText(r.Plan.Divest)))
	}
	return b.String()
}

func kindLabel(k model.Kind) string {
	switch k {
	case model.KindFund:
		return "Fundo"
	case model.KindCrypto:
		return "Cripto"
	case model.KindEquity:
		return "Ação"
	default:
		return string(k)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// FormatIndicatorsHTML formats the latest economic indicators for Telegram.
func FormatIndicatorsHTML(inds []model.EconomicIndicator, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏦 <b>Indicadores econômicos</b> | %s\n\n", at.Format(dateLayout)))
	if len(inds) == 0 {
		b.WriteString("Nenhum indicador disponível.\n")
		return b.String()
	}
	for _, ind := range inds {
		b.WriteString(fmt.Sprintf("  %s: <b>%s</b> (%s)\n", html.EscapeString(ind.Name), indicatorValue(ind.Value), ind.Date.Format(dateLayout)))
	}
	return b.String()
}

// FormatIndicatorsMarkdown formats the latest economic indicators for the terminal.
func FormatIndicatorsMarkdown(inds []model.EconomicIndicator) string {
	var b strings.Builder
	b.WriteString("# Indicadores econômicos\n\n")
	b.WriteString("| Série | Código | Data | Valor |\n")
	b.WriteString("|---|---:|---|---:|\n")
	for _, ind := range inds {
		b.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", escapeCell(ind.Name), ind.Code, ind.Date.Format(dateLayout), indicatorValue(ind.Value)))
	}
	return b.String()
}

func indicatorValue(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "<b>Comandos</b>\n" +
		"/carteira - avaliação da carteira\n" +
		"/rebalancear - apenas o plano de rebalanceamento\n" +
		"/indicadores - indicadores econômicos\n" +
		"/historico - últimas avaliações\n" +
		"/ajuda - esta mensagem"
}
