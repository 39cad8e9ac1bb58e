package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/models"
)

// EventFilter narrows a search on a birth or death event.
type EventFilter struct {
	Place    string
	Date     string
	FromYear *int
	ToYear   *int
}

func (f EventFilter) empty() bool {
	return f.Place == "" && f.Date == "" && f.FromYear == nil && f.ToYear == nil
}

// SearchQuery selects people of one tree. Every whitespace separated word
// of Name must match a first or last name, allowing for known spelling
// variants.
type SearchQuery struct {
	TreeID uint
	Name   string
	Birth  EventFilter
	Death  EventFilter
	Limit  int
}

// SearchResult is a matching person with the years used for display.
type SearchResult struct {
	Person    models.Person
	BirthYear *int
	DeathYear *int
}

// SearchService finds people in a tree
type SearchService interface {
	SearchPeople(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

type searchService struct {
	db *gorm.DB
}

// NewSearchService creates a new search service
func NewSearchService(db *gorm.DB) SearchService {
	return &searchService{db: db}
}

// SearchPeople returns the people of q.TreeID matching q, ordered by name.
// Matching is done in memory after loading the tree, which keeps case and
// accent folding identical on every database.
func (s *searchService) SearchPeople(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	db := s.db.WithContext(ctx)
	if err := treeExists(db, q.TreeID); err != nil {
		return nil, err
	}

	var people []models.Person
	if err := db.Where("tree_id = ?", q.TreeID).Order("last_name, first_name, id").Find(&people).Error; err != nil {
		return nil, errors.Wrap(err, "load people")
	}

	var events []models.Event
	err := db.Where("person_id IN (?) AND event_type IN ?",
		db.Model(&models.Person{}).Select("id").Where("tree_id = ?", q.TreeID),
		[]models.EventType{models.EventBirth, models.EventDeath}).Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "load events")
	}
	births := make(map[uint]*models.Event)
	deaths := make(map[uint]*models.Event)
	for i := range events {
		ev := &events[i]
		if ev.Type == models.EventBirth {
			births[ev.PersonID] = ev
		} else {
			deaths[ev.PersonID] = ev
		}
	}

	terms := nameTerms(q.Name)
	var out []SearchResult
	for _, p := range people {
		if !matchesName(p, terms) {
			continue
		}
		birth, death := births[p.ID], deaths[p.ID]
		if !matchesEvent(birth, q.Birth) || !matchesEvent(death, q.Death) {
			continue
		}
		r := SearchResult{Person: p}
		if birth != nil {
			r.BirthYear = birth.Year
		}
		if death != nil {
			r.DeathYear = death.Year
		}
		out = append(out, r)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// nameTerm is one searched word with the alternatives it stands for in
// first and last names.
type nameTerm struct {
	first []string
	last  []string
}

func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

func variantGroup(table [][]string, word string) []string {
	for _, group := range table {
		for _, v := range group {
			if fold(v) == word {
				return group
			}
		}
	}
	return nil
}

// nameTerms expands each word of name. A known given name matches its
// variants in first names but only itself in last names; a known surname
// the reverse. Unknown words match either name as typed.
func nameTerms(name string) []nameTerm {
	var terms []nameTerm
	for _, word := range strings.Fields(name) {
		w := fold(word)
		t := nameTerm{first: []string{w}, last: []string{w}}
		if group := variantGroup(givenNameVariants, w); group != nil {
			t.first = foldAll(group)
		} else if group := variantGroup(surnameVariants, w); group != nil {
			t.last = foldAll(group)
		}
		terms = append(terms, t)
	}
	return terms
}

func foldAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = fold(w)
	}
	return out
}

func matchesName(p models.Person, terms []nameTerm) bool {
	first, last := fold(p.FirstName), fold(p.LastName)
	for _, t := range terms {
		if !containsAny(first, t.first) && !containsAny(last, t.last) {
			return false
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func matchesEvent(ev *models.Event, f EventFilter) bool {
	if f.empty() {
		return true
	}
	if ev == nil {
		return false
	}
	if f.Place != "" && !strings.Contains(fold(ev.Place), fold(f.Place)) {
		return false
	}
	if f.Date != "" && !strings.Contains(fold(ev.Date), fold(f.Date)) {
		return false
	}
	if f.FromYear != nil && (ev.Year == nil || *ev.Year < *f.FromYear) {
		return false
	}
	if f.ToYear != nil && (ev.Year == nil || *ev.Year > *f.ToYear) {
		return false
	}
	return true
}
