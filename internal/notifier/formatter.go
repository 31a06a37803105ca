package notifier

import (
	"fmt"
	"strings"
	"time"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/pipeline"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

// Titles used for the report cards.
const (
	TitleRisk   = "持仓风控提醒"
	TitleScan   = "每日精选"
	TitleFailed = "风控扫描失败"
)

// FormatRiskReport renders one block per holding. Holdings that could not be
// evaluated get a diagnostic line instead.
func FormatRiskReport(r pipeline.RiskReport) string {
	if len(r.Items) == 0 {
		return fmt.Sprintf("**风控扫描**\n- 暂无持仓或未配置。\n更新时间：%s", r.Time.Format(timeLayout))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("**风控扫描（自动风控）**\n更新时间：%s\n", r.Time.Format(timeLayout)))
	for _, it := range r.Items {
		if it.Err != "" {
			b.WriteString(fmt.Sprintf("\n- **%s**  ⚠️ 数据不可用：%s", it.Symbol, it.Err))
			continue
		}
		b.WriteString(fmt.Sprintf("\n- **%s**  现价:%s  盈亏:%s%%", it.Symbol, num(it.Last), decimal.NewFromFloat(it.PnLPct).StringFixed(2)))
		if it.Pair != "" && it.Pair != it.Symbol {
			b.WriteString(fmt.Sprintf("  来源:%s %s", it.Venue, it.Pair))
		}
		b.WriteString(fmt.Sprintf("\n  止损:%s  止盈:%s  MA50:%s", fixed4(it.Levels.StopLoss), fixed4(it.Levels.TakeProfit), fixed4(it.MA50)))
		if it.MA200 > 0 {
			b.WriteString("  MA200:" + fixed4(it.MA200))
		}
		if it.Mode == pipeline.ModeDynamic {
			b.WriteString("  (动态)")
		}
		reasons := append([]string{it.Action.Reason()}, it.Changes...)
		b.WriteString(fmt.Sprintf("\n  建议：**%s**；%s", it.Action.Label.Display(), strings.Join(reasons, "；")))
	}
	return b.String()
}

// FormatScanReport renders the ranked candidates and a failure summary.
func FormatScanReport(r pipeline.ScanReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("**每日精选（风格：%s）**\n交易所：%s  基准：%s  扫描：%d\n更新时间：%s\n",
		r.Style, r.Venue, r.Benchmark, r.Scanned, r.Time.Format(timeLayout)))
	if len(r.Top) == 0 {
		b.WriteString("\n- 无可用标的。")
	}
	for i, it := range r.Top {
		s := it.Score
		b.WriteString(fmt.Sprintf("\n%d. **%s**  评分:%s  现价:%s", i+1, it.Symbol,
			decimal.NewFromFloat(s.TotalRounded()).StringFixed(2), num(it.Price)))
		if it.SpreadPct != nil {
			b.WriteString(fmt.Sprintf("  点差:%s%%", num(*it.SpreadPct)))
		}
		b.WriteString(fmt.Sprintf("\n   趋势:%.0f 量能:%.0f 相对强弱:%.0f 催化:%.0f 链上:%.0f",
			s.Trend, s.Volume, s.RelativeStrength, s.Catalyst, s.Onchain))
		b.WriteString(fmt.Sprintf("\n   建议：**%s**；%s", it.Action.Label.Display(), it.Action.Reason()))
	}
	if len(r.Failures) > 0 {
		b.WriteString(fmt.Sprintf("\n\n失败 %d 个：", len(r.Failures)))
		for _, f := range r.Failures {
			b.WriteString(fmt.Sprintf("\n- %s：%s", f.Symbol, f.Err))
		}
	}
	return b.String()
}

// FormatHoldings lists holdings the way the holdings command echoes them.
func FormatHoldings(items []model.Holding) string {
	if len(items) == 0 {
		return "你当前没有持仓记录。用 `/holdings set` 添加。"
	}
	var b strings.Builder
	b.WriteString("**你的持仓**\n")
	for _, h := range items {
		b.WriteString(fmt.Sprintf("\n- %s  价格:%s  数量:%s  止损%%:%s  止盈%%:%s",
			h.Symbol, num(h.EntryPrice), num(h.Qty), optPct(h.StopLossPct, h), optPct(h.TakeProfitPct, h)))
	}
	return b.String()
}

// FormatFailure renders a cycle that failed as a whole.
func FormatFailure(at time.Time, err error) string {
	return fmt.Sprintf("**风控扫描失败**\n- 时间：%s\n- 错误：%v", at.Format(timeLayout), err)
}

// HelpText lists the chat commands.
const HelpText = "**可用命令**\n" +
	"`/scan [topn] [style]` 立即运行每日精选\n" +
	"`/risk` 立即运行持仓风控\n" +
	"`/holdings set` 多行：`币对 价格 数量 [止损% 止盈%]`\n" +
	"`/holdings list` 查看持仓\n" +
	"`/holdings clear confirm` 清空持仓\n" +
	"`/help` 显示本帮助\n\n" +
	"示例：\n/holdings set\nBTC/USDT 60000 0.12 8 12\nSOL/USDT 165.3 20"

func num(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func fixed4(v float64) string {
	if v == 0 {
		return "—"
	}
	return decimal.NewFromFloat(v).StringFixed(4)
}

// optPct shows "动态" for a fully dynamic holding and the default for a
// missing half of a static one.
func optPct(p *float64, h model.Holding) string {
	if p != nil {
		return num(*p)
	}
	if h.UsesDynamicRisk() {
		return "动态"
	}
	return "默认"
}
