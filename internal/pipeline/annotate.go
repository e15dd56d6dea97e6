package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nao1215/sigscan/internal/model"
)

// CustomFieldDelimiter separates rule names in the custom metadata field.
const CustomFieldDelimiter = "; "

// TagSeparator joins the root tag and the rule name.
const TagSeparator = "|"

// annotate applies annotations for scan outcomes. It stops after one
// termination marker per scan worker, or early on abort; outcomes still
// queued at that point are discarded.
func (r *run) annotate(ctx context.Context) {
	finished := 0
	for {
		e, err := r.annotateQueue.Pop(ctx)
		if err != nil {
			r.p.logger.Warn("annotate stage aborted", "discarded", r.annotateQueue.Len())
			r.counters.markAborted()
			return
		}
		if e.Done {
			finished++
			if finished == r.p.concurrency {
				r.p.logger.Debug("annotate stage finished")
				return
			}
			continue
		}
		if ctx.Err() != nil {
			r.counters.markAborted()
			return
		}

		r.annotateOutcome(ctx, e.Value)
	}
}

func (r *run) annotateOutcome(ctx context.Context, outcome model.ScanOutcome) {
	if !outcome.Matched() {
		return
	}
	r.p.recorder.Record(outcome)

	applied := false
	failed := false

	if r.p.tagMatches {
		if err := r.applyTags(ctx, outcome); err != nil {
			r.annotationFailed(outcome.Item, err)
			failed = true
		} else {
			applied = true
		}
	}

	if r.p.customField != "" {
		if err := r.applyCustomField(ctx, outcome); err != nil {
			r.annotationFailed(outcome.Item, err)
			failed = true
		} else {
			applied = true
		}
	}

	if failed {
		r.counters.addErrored()
	}
	if applied {
		r.counters.addAnnotated()
	}
}

func (r *run) applyTags(ctx context.Context, outcome model.ScanOutcome) error {
	for _, rule := range outcome.MatchedRules {
		label := r.p.rootTag + TagSeparator + rule
		err := protect(func() error {
			return r.p.annotator.AddTag(ctx, outcome.Item, label)
		})
		if err != nil {
			return fmt.Errorf("add tag %q: %w", label, err)
		}
	}
	return nil
}

func (r *run) applyCustomField(ctx context.Context, outcome model.ScanOutcome) error {
	return protect(func() error {
		existing, _, err := r.p.annotator.CustomField(ctx, outcome.Item, r.p.customField)
		if err != nil {
			return fmt.Errorf("read custom field %q: %w", r.p.customField, err)
		}

		value := MergeFieldValue(existing, outcome.MatchedRules)
		if err := r.p.annotator.SetCustomField(ctx, outcome.Item, r.p.customField, value); err != nil {
			return fmt.Errorf("write custom field %q: %w", r.p.customField, err)
		}
		return nil
	})
}

func (r *run) annotationFailed(item model.Item, err error) {
	err = fmt.Errorf("%w: %w", ErrAnnotation, err)
	r.p.logger.Warn("annotation failed", "guid", item.GUID, "error", err)
	r.logError(fmt.Sprintf("Error while annotating item with GUID %s: %v", item.GUID, err))
}

// MergeFieldValue merges rule names into an existing delimited field value.
// The result is the deduplicated, lexicographically sorted union of both,
// blanks removed, joined with CustomFieldDelimiter. Merging the same names
// twice yields the same value.
func MergeFieldValue(existing string, rules []string) string {
	seen := make(map[string]struct{}, len(rules))
	values := make([]string, 0, len(rules))

	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}

	for _, rule := range rules {
		add(rule)
	}
	if existing != "" {
		for _, v := range strings.Split(existing, CustomFieldDelimiter) {
			add(v)
		}
	}

	sort.Strings(values)
	return strings.Join(values, CustomFieldDelimiter)
}
