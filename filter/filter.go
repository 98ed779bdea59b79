package filter

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"
	"unicode"

	"github.com/scipunch/pressbrief/config"
	"github.com/scipunch/pressbrief/fetcher/types"
	"github.com/scipunch/pressbrief/normalize"
)

// Day is the UTC calendar day [Start, Start+24h).
type Day struct {
	Start time.Time
}

// Today returns the UTC calendar day containing now.
func Today(now time.Time) Day {
	y, m, d := now.UTC().Date()
	return Day{Start: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Contains reports whether t falls within the day.
func (d Day) Contains(t time.Time) bool {
	end := d.Start.AddDate(0, 0, 1)
	return !t.Before(d.Start) && t.Before(end)
}

// Published reports whether the item's publication (or update) date falls
// within the day. Undated items never match.
func (d Day) Published(item types.FeedItem) bool {
	date, ok := item.Date()
	return ok && d.Contains(date)
}

// Pipeline applies a series of named filters to feed items.
type Pipeline struct {
	filters map[string]*compiledFilter
	logger  *slog.Logger
}

type compiledFilter struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
}

// NewPipeline compiles the configured filters. An invalid pattern is a
// configuration error.
func NewPipeline(filtersConfig map[string]config.Filter, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiled := make(map[string]*compiledFilter, len(filtersConfig))

	for name, filterCfg := range filtersConfig {
		cf := &compiledFilter{
			config:          filterCfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(filterCfg.ExcludePatterns)),
		}

		for _, pattern := range filterCfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("filter '%s' has invalid pattern '%s': %w", name, pattern, err)
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
		}

		compiled[name] = cf
	}

	return &Pipeline{filters: compiled, logger: logger}, nil
}

// Has reports whether a filter with the given name exists.
func (p *Pipeline) Has(name string) bool {
	_, ok := p.filters[name]
	return ok
}

// ShouldInclude returns true if the item passes all named filters in order.
// The second value names the rule that rejected the item.
func (p *Pipeline) ShouldInclude(item types.FeedItem, filterNames []string) (bool, string) {
	if len(filterNames) == 0 {
		return true, ""
	}

	text := item.Title + " " + normalize.Summary(item.Description)

	for _, filterName := range filterNames {
		f, exists := p.filters[filterName]
		if !exists {
			p.logger.Warn("filter not found, skipping", "filter_name", filterName)
			continue
		}

		if ok, reason := f.apply(text, filterName); !ok {
			return false, reason
		}
	}

	return true, ""
}

func (f *compiledFilter) apply(text, name string) (bool, string) {
	if f.config.MinLength > 0 && len([]rune(text)) < f.config.MinLength {
		return false, name + ":min_length"
	}

	if f.config.MinWords > 0 && countWords(text) < f.config.MinWords {
		return false, name + ":min_words"
	}

	for i, pattern := range f.excludePatterns {
		if pattern.MatchString(text) {
			return false, name + ":exclude_pattern[" + f.config.ExcludePatterns[i] + "]"
		}
	}

	return true, ""
}

func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	return words
}
