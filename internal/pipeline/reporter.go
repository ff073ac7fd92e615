package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/shinji-kodama/effmap-pack/internal/i18n"
)

// TotalSteps is the number of numbered build steps.
const TotalSteps = 5

const rule = "==================================================="

// Reporter prints localized progress for the operator.
type Reporter struct {
	w  io.Writer
	tr *i18n.Translator

	// Debug receives diagnostic lines that are not localized. nil drops
	// them.
	Debug func(format string, args ...interface{})
}

// NewReporter returns a Reporter writing to w in the language of tr.
func NewReporter(w io.Writer, tr *i18n.Translator) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w, tr: tr}
}

// Translator returns the translator messages are formatted with.
func (r *Reporter) Translator() *i18n.Translator {
	return r.tr
}

// Banner prints the framed title shown before the first step.
func (r *Reporter) Banner(name string) {
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, center(r.tr.T("banner.title", name)))
	fmt.Fprintln(r.w, rule)
}

// Step prints the "[n/5] ..." progress line.
func (r *Reporter) Step(n int, key string) {
	fmt.Fprintf(r.w, "[%d/%d] %s\n", n, TotalSteps, r.tr.T(key))
}

// Say prints a message without a label.
func (r *Reporter) Say(key string, args ...interface{}) {
	fmt.Fprintln(r.w, r.tr.T(key, args...))
}

// Info prints a message with the [INFO] label.
func (r *Reporter) Info(key string, args ...interface{}) {
	r.labeled("label.info", key, args...)
}

// Warn prints a message with the [WARN] label.
func (r *Reporter) Warn(key string, args ...interface{}) {
	r.labeled("label.warn", key, args...)
}

// Error prints a message with the [ERROR] label.
func (r *Reporter) Error(key string, args ...interface{}) {
	r.labeled("label.error", key, args...)
}

// Message returns the localized text of key without printing it.
func (r *Reporter) Message(key string, args ...interface{}) string {
	return r.tr.T(key, args...)
}

// Done prints the closing summary with the absolute output folder.
func (r *Reporter) Done(outputDir, executable string) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, center(r.tr.T("done.title")))
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, r.tr.T("done.location", outputDir))
	fmt.Fprintln(r.w, r.tr.T("done.hint", executable))
	fmt.Fprintln(r.w, rule)
}

func (r *Reporter) debugf(format string, args ...interface{}) {
	if r.Debug != nil {
		r.Debug(format, args...)
	}
}

func (r *Reporter) labeled(label, key string, args ...interface{}) {
	fmt.Fprintf(r.w, "%s %s\n", r.tr.T(label), r.tr.T(key, args...))
}

// center pads s to sit in the middle of the banner rule. Width is counted
// in runes, which is close enough for the CJK titles.
func center(s string) string {
	pad := (len(rule) - len([]rune(s))) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
