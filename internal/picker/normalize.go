package picker

import (
	"strings"

	"github.com/alfredjeanlab/kadr/internal/model"
	"golang.org/x/text/cases"
)

// normalizeLabel case-folds s and drops any qualifier after the first label
// separator. A Caser keeps state, so a fresh one is made per call.
func normalizeLabel(s string) string {
	s = strings.TrimSpace(cases.Fold().String(s))
	if head, _, ok := strings.Cut(s, model.LabelSeparator); ok {
		s = head
	}
	return strings.Join(strings.Fields(s), " ")
}

// pendingKey is the normalized form of a pending label. Labels that start
// with the separator keep their full text so the key is never empty.
func pendingKey(label string) string {
	if key := normalizeLabel(label); key != "" {
		return key
	}
	return strings.Join(strings.Fields(cases.Fold().String(label)), " ")
}

// searchTerm is the text sent to the catalog while a pending label is being
// resolved: the label without its qualifier, in its original case.
func searchTerm(label string) string {
	head, _, _ := strings.Cut(strings.TrimSpace(label), model.LabelSeparator)
	if head = strings.TrimSpace(head); head != "" {
		return head
	}
	return strings.TrimSpace(label)
}

// matchLabel returns the first option whose normalized label equals key or,
// failing that, the first whose normalized label contains key.
//
// The substring fallback picks the earliest candidate when several labels
// share a prefix (two units both starting with "Infantry"); nothing further
// disambiguates them.
func matchLabel(key string, options []model.Option) (model.Option, bool) {
	if key == "" {
		return model.Option{}, false
	}
	normalized := make([]string, len(options))
	for i, opt := range options {
		normalized[i] = normalizeLabel(opt.Label)
		if normalized[i] == key {
			return opt, true
		}
	}
	for i, opt := range options {
		if strings.Contains(normalized[i], key) {
			return opt, true
		}
	}
	return model.Option{}, false
}
