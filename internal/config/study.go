package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const studyDateLayout = "2006-01-02"

// Study is a saved simulate/optimize request.
type Study struct {
	Start      string    `yaml:"start"`
	End        string    `yaml:"end"`
	Symbols    []string  `yaml:"symbols"`
	Allocation []float64 `yaml:"allocation"`
	Step       float64   `yaml:"step"`
	Method     string    `yaml:"method"`
}

// LoadStudy reads and checks a study file.
func LoadStudy(path string) (Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Study{}, err
	}
	var s Study
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Study{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, sym := range s.Symbols {
		s.Symbols[i] = strings.ToUpper(strings.TrimSpace(sym))
	}
	if len(s.Symbols) == 0 {
		return Study{}, fmt.Errorf("%s: no symbols", path)
	}
	if len(s.Allocation) > 0 && len(s.Allocation) != len(s.Symbols) {
		return Study{}, fmt.Errorf("%s: %d weights for %d symbols", path, len(s.Allocation), len(s.Symbols))
	}
	if _, _, err := s.Range(); err != nil {
		return Study{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Range parses the study's start and end dates.
func (s Study) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(studyDateLayout, s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(studyDateLayout, s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", s.End, s.Start)
	}
	return start, end, nil
}
