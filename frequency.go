package main

import (
	"fmt"
	"strings"
)

// Frequency is how often something happens within a year
type Frequency int

const (
	Annually Frequency = iota
	Semiannually
	Quarterly
	Monthly
	Biweekly
	Weekly
	Daily
)

type frequencyInfo struct {
	name           string
	periodsPerYear int
	label          string
}

// Built once, never mutated.
var frequencyTable = [...]frequencyInfo{
	Annually:     {"annually", 1, "Year"},
	Semiannually: {"semiannually", 2, "Semester"},
	Quarterly:    {"quarterly", 4, "Quarter"},
	Monthly:      {"monthly", 12, "Month"},
	Biweekly:     {"biweekly", 26, "Biweek"},
	Weekly:       {"weekly", 52, "Week"},
	Daily:        {"daily", 365, "Day"},
}

var frequencyByName = func() map[string]Frequency {
	m := make(map[string]Frequency, len(frequencyTable))
	for f, info := range frequencyTable {
		m[info.name] = Frequency(f)
	}
	return m
}()

func (f Frequency) valid() bool {
	return f >= Annually && f <= Daily
}

func (f Frequency) String() string {
	if !f.valid() {
		return "Unknown"
	}
	return frequencyTable[f].name
}

// PeriodsPerYear returns how many periods of this frequency fit in a year
func (f Frequency) PeriodsPerYear() int {
	if !f.valid() {
		return 0
	}
	return frequencyTable[f].periodsPerYear
}

// Label returns the singular period name used in breakdown rows
func (f Frequency) Label() string {
	if !f.valid() {
		return "Unknown"
	}
	return frequencyTable[f].label
}

// ParseFrequency looks up a frequency by name, ignoring case and surrounding space
func ParseFrequency(name string) (Frequency, error) {
	f, ok := frequencyByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, &ScenarioError{
			Kind:   InvalidFrequency,
			Reason: fmt.Sprintf("%q is not one of %s", name, strings.Join(FrequencyNames(), ", ")),
		}
	}
	return f, nil
}

// ResolveFrequency maps a frequency name to its periods per year and label
func ResolveFrequency(name string) (int, string, error) {
	f, err := ParseFrequency(name)
	if err != nil {
		return 0, "", err
	}
	return f.PeriodsPerYear(), f.Label(), nil
}

// Frequencies lists every supported frequency from least to most frequent
func Frequencies() []Frequency {
	out := make([]Frequency, 0, len(frequencyTable))
	for f := range frequencyTable {
		out = append(out, Frequency(f))
	}
	return out
}

// FrequencyNames lists the accepted frequency names in table order
func FrequencyNames() []string {
	names := make([]string, 0, len(frequencyTable))
	for _, info := range frequencyTable {
		names = append(names, info.name)
	}
	return names
}
