// Package report builds the before/after quality report of a cleaning run
// and renders it for people and machines.
package report

import (
	"github.com/TFMV/scour/pkg/clean"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/diff"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
)

// DefaultMateriality is the severity below which a post-clean issue counts as resolved.
const DefaultMateriality = 0.01

// QualityReport summarizes one cleaning run. It is read-only once built.
type QualityReport struct {
	Dataset string `json:"dataset"`

	PreScore       float64            `json:"pre_score"`
	PostScore      float64            `json:"post_score"`
	PreComponents  quality.Components `json:"pre_components"`
	PostComponents quality.Components `json:"post_components"`

	// IssuesResolved are pre-clean issues absent, or immaterial, after cleaning.
	IssuesResolved []quality.Issue `json:"issues_resolved"`
	// IssuesRemaining are pre-clean issues still material after cleaning, with their post-clean severity.
	IssuesRemaining []quality.Issue `json:"issues_remaining"`
	// IssuesIntroduced are material post-clean issues that did not exist before.
	IssuesIntroduced []quality.Issue `json:"issues_introduced"`

	ChangeLog clean.ChangeLog    `json:"change_log"`
	Warnings  []core.Warning     `json:"warnings"`
	Columns   []diff.ColumnDelta `json:"columns"`
	Summary   diff.Summary       `json:"summary"`
}

// ScoreDelta returns PostScore - PreScore.
func (r *QualityReport) ScoreDelta() float64 {
	return r.PostScore - r.PreScore
}

// Builder re-profiles a cleaned dataset and compares it with the pre-clean assessment.
type Builder struct {
	profiler    *profile.Profiler
	scorer      *quality.Scorer
	materiality float64
}

// NewBuilder creates a builder. The profiler and scorer must be configured
// exactly as the ones that produced the pre-clean assessment.
func NewBuilder(profiler *profile.Profiler, scorer *quality.Scorer) *Builder {
	return &Builder{profiler: profiler, scorer: scorer, materiality: DefaultMateriality}
}

// WithMateriality returns a copy of the builder using threshold m.
func (b *Builder) WithMateriality(m float64) *Builder {
	out := *b
	out.materiality = m
	return &out
}

// Build assembles the report. preRows is the row count of the raw dataset.
// The change log and warnings are copied, never modified.
func (b *Builder) Build(
	pre quality.Assessment,
	preProfiles []profile.ColumnProfile,
	preRows int,
	cleaned *core.Dataset,
	log clean.ChangeLog,
	warnings []core.Warning,
) (*QualityReport, []profile.ColumnProfile, quality.Assessment) {
	postProfiles := b.profiler.Profile(cleaned)
	post := b.scorer.Score(postProfiles, cleaned)

	r := &QualityReport{
		Dataset:          cleaned.Name,
		PreScore:         pre.Score,
		PostScore:        post.Score,
		PreComponents:    pre.Components,
		PostComponents:   post.Components,
		IssuesResolved:   []quality.Issue{},
		IssuesRemaining:  []quality.Issue{},
		IssuesIntroduced: []quality.Issue{},
		ChangeLog:        append(clean.ChangeLog{}, log...),
		Warnings:         append([]core.Warning{}, warnings...),
	}

	postByKey := make(map[quality.IssueKey]quality.Issue, len(post.Issues))
	for _, issue := range post.Issues {
		postByKey[issue.Key()] = issue
	}
	preKeys := make(map[quality.IssueKey]bool, len(pre.Issues))
	for _, issue := range pre.Issues {
		preKeys[issue.Key()] = true
		after, ok := postByKey[issue.Key()]
		if !ok || after.Severity < b.materiality {
			r.IssuesResolved = append(r.IssuesResolved, issue)
			continue
		}
		r.IssuesRemaining = append(r.IssuesRemaining, after)
	}
	for _, issue := range post.Issues {
		if !preKeys[issue.Key()] && issue.Severity >= b.materiality {
			r.IssuesIntroduced = append(r.IssuesIntroduced, issue)
		}
	}
	quality.SortIssues(r.IssuesRemaining)

	r.Columns = diff.Columns(preProfiles, postProfiles)
	r.Summary = diff.Summarize(r.Columns, preRows, cleaned.NumRows())
	return r, postProfiles, post
}
