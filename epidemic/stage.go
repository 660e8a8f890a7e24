// Package epidemic implements an agent-based contagion model on a 2-D box.
//
// Agents carry a disease stage, move under a pairwise short-range force and
// infect nearby susceptible agents with a distance-dependent probability.
// A Simulation advances all agents one tick at a time.
package epidemic

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is the disease state of an agent.
type Stage uint8

const (
	Susceptible Stage = iota
	Incubating
	Infectious
	Recovered
	Deceased
)

// NumStages is the number of disease stages.
const NumStages = 5

var stageNames = [NumStages]string{
	"susceptible",
	"incubating",
	"infectious",
	"recovered",
	"deceased",
}

// Stages lists every stage in index order.
func Stages() [NumStages]Stage {
	return [NumStages]Stage{Susceptible, Incubating, Infectious, Recovered, Deceased}
}

func (s Stage) String() string {
	if !s.Valid() {
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// Valid reports whether s is one of the five defined stages.
func (s Stage) Valid() bool {
	return s < NumStages
}

// Carrier reports whether an agent in stage s can transmit the disease.
func (s Stage) Carrier() bool {
	switch s.must() {
	case Incubating, Infectious:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Stage) Terminal() bool {
	switch s.must() {
	case Recovered, Deceased:
		return true
	}
	return false
}

// must panics on an out-of-range stage. Invalid stages are programming errors.
func (s Stage) must() Stage {
	if !s.Valid() {
		panic(fmt.Sprintf("epidemic: invalid stage %d", uint8(s)))
	}
	return s
}

// ParseStage accepts a stage name (case-insensitive), a short alias, or the
// stage index.
func ParseStage(v string) (Stage, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	for i, name := range stageNames {
		if key == name {
			return Stage(i), nil
		}
	}
	switch key {
	case "healthy":
		return Susceptible, nil
	case "incubation":
		return Incubating, nil
	case "sick", "infected":
		return Infectious, nil
	case "dead":
		return Deceased, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n < NumStages {
		return Stage(n), nil
	}
	return 0, fmt.Errorf("unknown stage %q", v)
}
