package docstore

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

// Patch is a field-level merge into a calendar document. Nil fields are left
// untouched; list fields replace the stored list wholesale. Token changes
// apply SetTokens, then RemoveTokens, then AddTokens with set semantics, and
// finally keep only the newest MaxTokens tokens when MaxTokens is positive.
type Patch struct {
	Daily  *[]model.Record
	Weekly *[]model.Record
	Master *[]model.Record
	Rules  *[]model.Entry
	Bans   *[]model.Entry

	LastUpdated *time.Time

	SetTokens    *[]string
	AddTokens    []string
	RemoveTokens []string
	MaxTokens    int

	LastBroadcastDate *model.Date
	// IfBroadcastNot makes the write fail with ErrPrecondition when the stored
	// broadcast date already equals it.
	IfBroadcastNot *model.Date
}

// ClaimBroadcast sets the broadcast marker to d unless another writer already
// did, which makes the evening broadcast at most once per day.
func ClaimBroadcast(d model.Date) Patch {
	return Patch{LastBroadcastDate: &d, IfBroadcastNot: &d}
}

// Check reports whether p may be applied to doc.
func (p Patch) Check(doc model.Document) error {
	if p.IfBroadcastNot != nil && doc.LastBroadcastDate == *p.IfBroadcastNot {
		return fmt.Errorf("%w: broadcast already recorded for %s", ErrPrecondition, *p.IfBroadcastNot)
	}
	return nil
}

// apply checks and applies p, for use as a Backend mutation.
func (p Patch) apply(doc *model.Document) error {
	if err := p.Check(*doc); err != nil {
		return err
	}
	p.Apply(doc)
	return nil
}

// ListsPatch touches only the five lists and the last-updated marker.
func ListsPatch(doc model.Document, at time.Time) Patch {
	at = at.UTC()
	daily, weekly, master := doc.Daily, doc.Weekly, doc.Master
	rules, bans := doc.Rules, doc.Bans
	return Patch{
		Daily:       &daily,
		Weekly:      &weekly,
		Master:      &master,
		Rules:       &rules,
		Bans:        &bans,
		LastUpdated: &at,
	}
}

func (p Patch) Empty() bool {
	return p.Daily == nil && p.Weekly == nil && p.Master == nil && p.Rules == nil && p.Bans == nil &&
		p.LastUpdated == nil && p.SetTokens == nil && len(p.AddTokens) == 0 && len(p.RemoveTokens) == 0 &&
		p.MaxTokens == 0 && p.LastBroadcastDate == nil && p.IfBroadcastNot == nil
}

func (p Patch) Apply(doc *model.Document) {
	if p.Daily != nil {
		doc.Daily = cloneRecords(*p.Daily)
	}
	if p.Weekly != nil {
		doc.Weekly = cloneRecords(*p.Weekly)
	}
	if p.Master != nil {
		doc.Master = cloneRecords(*p.Master)
	}
	if p.Rules != nil {
		doc.Rules = append([]model.Entry{}, *p.Rules...)
	}
	if p.Bans != nil {
		doc.Bans = append([]model.Entry{}, *p.Bans...)
	}
	if p.LastUpdated != nil {
		doc.LastUpdated = *p.LastUpdated
	}
	if p.SetTokens != nil {
		doc.Tokens = append([]string{}, *p.SetTokens...)
	}
	if len(p.RemoveTokens) > 0 {
		drop := make(map[string]bool, len(p.RemoveTokens))
		for _, tok := range p.RemoveTokens {
			drop[tok] = true
		}
		kept := doc.Tokens[:0:0]
		for _, tok := range doc.Tokens {
			if !drop[tok] {
				kept = append(kept, tok)
			}
		}
		doc.Tokens = kept
	}
	for _, tok := range p.AddTokens {
		if tok != "" && !contains(doc.Tokens, tok) {
			doc.Tokens = append(doc.Tokens, tok)
		}
	}
	if p.MaxTokens > 0 && len(doc.Tokens) > p.MaxTokens {
		doc.Tokens = append([]string{}, doc.Tokens[len(doc.Tokens)-p.MaxTokens:]...)
	}
	if p.LastBroadcastDate != nil {
		doc.LastBroadcastDate = *p.LastBroadcastDate
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func cloneRecords(in []model.Record) []model.Record {
	out := make([]model.Record, len(in))
	for i, r := range in {
		if r.IsActive != nil {
			active := *r.IsActive
			r.IsActive = &active
		}
		if r.CompletedDates != nil {
			r.CompletedDates = append([]string(nil), r.CompletedDates...)
		}
		out[i] = r
	}
	return out
}

// CloneDocument returns a copy that shares no slices with doc.
func CloneDocument(doc model.Document) model.Document {
	out := doc
	out.Daily = cloneRecords(doc.Daily)
	out.Weekly = cloneRecords(doc.Weekly)
	out.Master = cloneRecords(doc.Master)
	out.Rules = append([]model.Entry{}, doc.Rules...)
	out.Bans = append([]model.Entry{}, doc.Bans...)
	out.Tokens = append([]string{}, doc.Tokens...)
	return out
}
