package codec

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/turing/pkg/domain"
)

type xmlMachine struct {
	XMLName      xml.Name   `xml:"turingmachine"`
	Alphabet     string     `xml:"alphabet"`
	Blank        *xmlBlank  `xml:"blank"`
	InitialTape  *string    `xml:"initialtape"`
	InitialState *xmlNamed  `xml:"initialstate"`
	FinalStates  *xmlFinals `xml:"finalstates"`
	States       *xmlStates `xml:"states"`
}

type xmlBlank struct {
	Char string `xml:"char,attr"`
}

type xmlNamed struct {
	Name string `xml:"name,attr"`
}

type xmlFinals struct {
	States []xmlNamed `xml:"finalstate"`
}

type xmlStates struct {
	States []xmlState `xml:"state"`
}

type xmlState struct {
	Name        string          `xml:"name,attr"`
	XPos        string          `xml:"xpos,attr"`
	YPos        string          `xml:"ypos,attr"`
	Transitions []xmlTransition `xml:"transition"`
}

type xmlTransition struct {
	SeenSym  string `xml:"seensym,attr"`
	WriteSym string `xml:"writesym,attr"`
	NewState string `xml:"newstate,attr"`
	Move     string `xml:"move,attr"`
	CtlX     string `xml:"ctlx,attr"`
	CtlY     string `xml:"ctly,attr"`
}

func decodeXML(r io.Reader) (*domain.Snapshot, error) {
	var doc xmlMachine
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	switch {
	case doc.InitialTape == nil:
		return nil, missing("initialtape")
	case doc.InitialState == nil:
		return nil, missing("initialstate")
	case doc.States == nil:
		return nil, missing("states")
	}

	snap := &domain.Snapshot{
		Alphabet: strings.TrimSpace(doc.Alphabet),
		Blank:    domain.Blank,
		States:   make([]domain.StateSpec, 0, len(doc.States.States)),
	}
	if doc.Blank != nil && doc.Blank.Char != "" {
		snap.Blank = doc.Blank.Char
	}

	snap.Tape = strings.TrimSpace(*doc.InitialTape)
	if strings.Trim(snap.Tape, snap.Blank) == "" {
		snap.Tape = ""
	}

	if name := doc.InitialState.Name; name != domain.NoInitialState {
		snap.StartState = name
	}

	finals := make(map[string]bool)
	if doc.FinalStates != nil {
		for _, f := range doc.FinalStates.States {
			finals[f.Name] = true
		}
	}

	for _, xs := range doc.States.States {
		if xs.Name == "" {
			return nil, missing("state name")
		}
		x, err := parseCoord("xpos", xs.XPos)
		if err != nil {
			return nil, err
		}
		y, err := parseCoord("ypos", xs.YPos)
		if err != nil {
			return nil, err
		}
		spec := domain.StateSpec{
			Name:     xs.Name,
			Position: domain.Vec2{X: x, Y: y},
			Final:    finals[xs.Name],
		}

		for _, xt := range xs.Transitions {
			if xt.NewState == "" {
				return nil, missing("transition newstate")
			}
			dir, err := domain.ParseDirection(xt.Move)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrMalformedMachine, err)
			}
			cx, err := parseCoord("ctlx", xt.CtlX)
			if err != nil {
				return nil, err
			}
			cy, err := parseCoord("ctly", xt.CtlY)
			if err != nil {
				return nil, err
			}
			spec.Transitions = append(spec.Transitions, domain.TransitionSpec{
				Read:      xt.SeenSym,
				Write:     xt.WriteSym,
				To:        xt.NewState,
				Direction: dir,
				Anchor:    domain.Vec2{X: cx, Y: cy},
			})
		}
		snap.States = append(snap.States, spec)
	}
	return snap, nil
}

func missing(what string) error {
	return fmt.Errorf("%w: missing %s", domain.ErrMalformedMachine, what)
}

func parseCoord(attr, s string) (float64, error) {
	if s == "" {
		return 0, missing(attr)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", domain.ErrMalformedMachine, attr, s)
	}
	return v, nil
}

// Coordinates are written as truncated integers.
func formatCoord(v float64) string {
	return strconv.Itoa(int(v))
}

func encodeXML(w io.Writer, snap *domain.Snapshot) error {
	blank := snap.Blank
	if blank == "" {
		blank = domain.Blank
	}
	alphabet := snap.Alphabet
	if alphabet == "" {
		alphabet = domain.DefaultAlphabet
	}
	tape := snap.Tape
	if tape == "" {
		tape = blank
	}
	start := snap.StartState
	if start == "" {
		start = domain.NoInitialState
	}

	doc := xmlMachine{
		Alphabet:     alphabet,
		Blank:        &xmlBlank{Char: blank},
		InitialTape:  &tape,
		InitialState: &xmlNamed{Name: start},
		FinalStates:  &xmlFinals{},
		States:       &xmlStates{},
	}

	for _, st := range snap.States {
		if st.Final {
			doc.FinalStates.States = append(doc.FinalStates.States, xmlNamed{Name: st.Name})
		}
		xs := xmlState{
			Name: st.Name,
			XPos: formatCoord(st.Position.X),
			YPos: formatCoord(st.Position.Y),
		}
		for _, t := range st.Transitions {
			xs.Transitions = append(xs.Transitions, xmlTransition{
				SeenSym:  t.Read,
				WriteSym: t.Write,
				NewState: t.To,
				Move:     string(t.Direction),
				CtlX:     formatCoord(t.Anchor.X),
				CtlY:     formatCoord(t.Anchor.Y),
			})
		}
		doc.States.States = append(doc.States.States, xs)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
