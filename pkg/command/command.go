package command

import (
	"strconv"
	"strings"

	"github.com/hfe-lab/rigctl/pkg/valve"
)

// Action is a parsed operator command. Exactly one kind is set.
type Action struct {
	Kind    Kind
	Mode    valve.Mode // SetOverride
	Percent float64    // SetPumpPercent
}

// Kind discriminates the Action variants.
type Kind uint8

const (
	SetOverride Kind = iota
	SetPumpPercent
)

// Parser turns operator command lines into actions. maxFreqHz converts
// "PUMP HZ" commands into percent.
type Parser struct {
	maxFreqHz float64
}

// NewParser creates a parser for the given full-scale drive frequency.
func NewParser(maxFreqHz float64) *Parser {
	return &Parser{maxFreqHz: maxFreqHz}
}

// Parse matches a command line against the fixed keyword set, case
// insensitively. Unrecognized or malformed lines return (Action{}, false)
// and are otherwise ignored; operators get no error channel.
//
// Accepted forms:
//
//	VALVE OPEN | VALVE CLOSE | VALVE AUTO
//	PUMP <number>[%]
//	PUMP HZ <number>
func (p *Parser) Parse(line string) (Action, bool) {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(line)))
	if len(fields) < 2 {
		return Action{}, false
	}

	switch fields[0] {
	case "VALVE":
		if len(fields) != 2 {
			return Action{}, false
		}
		switch fields[1] {
		case "OPEN":
			return Action{Kind: SetOverride, Mode: valve.ForceOpen}, true
		case "CLOSE":
			return Action{Kind: SetOverride, Mode: valve.ForceClose}, true
		case "AUTO":
			return Action{Kind: SetOverride, Mode: valve.Auto}, true
		}

	case "PUMP":
		if fields[1] == "HZ" {
			if len(fields) != 3 || p.maxFreqHz <= 0 {
				return Action{}, false
			}
			hz, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return Action{}, false
			}
			return Action{Kind: SetPumpPercent, Percent: hz / p.maxFreqHz * 100}, true
		}
		if len(fields) != 2 {
			return Action{}, false
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
		if err != nil {
			return Action{}, false
		}
		return Action{Kind: SetPumpPercent, Percent: pct}, true
	}

	return Action{}, false
}
