package report

import (
	"fmt"
	"html/template"
	"log"
	"os"
	"time"
)

// Comparison holds the before/after numbers for one page or application.
type Comparison struct {
	// InitialTotal and FinalTotal are affected-node counts from the audit
	// before and after remediation.
	InitialTotal int
	FinalTotal   int
	Elapsed      time.Duration
}

// Reduction is the number of affected nodes removed; negative when the
// rewrite made things worse.
func (c Comparison) Reduction() int {
	return c.InitialTotal - c.FinalTotal
}

// ImprovementPercent is the relative reduction, zero for a clean baseline.
func (c Comparison) ImprovementPercent() float64 {
	if c.InitialTotal <= 0 {
		return 0
	}
	return float64(c.Reduction()) / float64(c.InitialTotal) * 100
}

type comparisonView struct {
	InitialTotal int
	FinalTotal   int
	// ReductionLabel is a signed integer rendered with %+d; marked safe so
	// the template engine does not escape the plus sign to &#43;.
	ReductionLabel     template.HTML
	ReductionClass     string
	ImprovementPercent float64
	Elapsed            string
}

// WriteComparison renders the comparison page to path.
func WriteComparison(path string, c Comparison) error {
	view := comparisonView{
		InitialTotal:       c.InitialTotal,
		FinalTotal:         c.FinalTotal,
		ReductionLabel:     template.HTML(fmt.Sprintf("%+d", c.Reduction())),
		ReductionClass:     "positive",
		ImprovementPercent: c.ImprovementPercent(),
		Elapsed:            c.Elapsed.Round(time.Second).String(),
	}
	if c.Reduction() < 0 {
		view.ReductionClass = "negative"
	}

	f, err := os.Create(path)
	if err != nil {
		return &Error{Message: "comparison report write failed", Cause: err}
	}
	defer func() { _ = f.Close() }()

	if err := comparisonTemplate.Execute(f, view); err != nil {
		return &Error{Message: "comparison report render failed", Cause: err}
	}

	log.Printf("[REPORT] Comparison report written to %s", path)
	return nil
}

var comparisonTemplate = template.Must(template.New("comparison").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Accessibility Improvement Report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; margin: 0; background-color: #f8f9fa; color: #343a40; }
        .container { max-width: 900px; margin: 40px auto; padding: 30px; background-color: white; border-radius: 8px; box-shadow: 0 4px 12px rgba(0,0,0,0.08); }
        h1, h2 { color: #212529; border-bottom: 2px solid #e9ecef; padding-bottom: 10px; }
        h1 { font-size: 2.5em; text-align: center; margin-bottom: 30px; }
        h2 { font-size: 1.8em; margin-top: 40px; }
        .summary { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; text-align: center; margin-bottom: 40px; }
        .metric { background-color: #f1f3f5; padding: 20px; border-radius: 8px; }
        .metric .value { font-size: 2.5em; font-weight: bold; color: #007bff; }
        .metric .value.positive { color: #28a745; }
        .metric .value.negative { color: #dc3545; }
        .metric .label { font-size: 1em; color: #6c757d; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Accessibility Report</h1>
        <h2>Improvement Summary</h2>
        <div class="summary">
            <div class="metric"><div class="value">{{.InitialTotal}}</div><div class="label">Initial Violations</div></div>
            <div class="metric"><div class="value">{{.FinalTotal}}</div><div class="label">Final Violations</div></div>
            <div class="metric"><div class="value {{.ReductionClass}}">{{.ReductionLabel}}</div><div class="label">Violations Corrected</div></div>
            <div class="metric"><div class="value {{.ReductionClass}}">{{printf "%.2f" .ImprovementPercent}}%</div><div class="label">Relative Improvement</div></div>
            <div class="metric"><div class="value">{{.Elapsed}}</div><div class="label">Elapsed Time</div></div>
        </div>
    </div>
</body>
</html>
`))
