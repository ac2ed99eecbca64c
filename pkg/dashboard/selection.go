package dashboard

import (
	"fmt"
	"strings"

	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
)

const MaxCompetitors = 2

type Mode string

const (
	ModeSingle     Mode = "single"
	ModeComparison Mode = "comparison"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "comparison", "twocompetitorcomparison", "driver vs driver":
		return ModeComparison, nil
	case "single", "singlecompetitor", "single driver consistency":
		return ModeSingle, nil
	}
	return "", &SelectionError{Message: fmt.Sprintf("Modo de análisis desconocido: %q", s)}
}

// Label is the text of the mode selector.
func (m Mode) Label() string {
	if m == ModeSingle {
		return "Consistencia de un piloto"
	}
	return "Piloto contra piloto"
}

// Needed returns how many competitors a mode charts.
func (m Mode) Needed() int {
	if m == ModeSingle {
		return 1
	}
	return MaxCompetitors
}

type Selection struct {
	Season      int      `json:"season"`
	Event       string   `json:"event"`
	Mode        Mode     `json:"mode"`
	Competitors []string `json:"competitors"`
	// Session defaults to the race.
	Session model.SessionKind `json:"session,omitempty"`
}

// SelectionError is an invalid selection together with the prompt shown to the
// user. It matches model.ErrInvalidSelection.
type SelectionError struct {
	Message string
}

func (e *SelectionError) Error() string {
	return model.ErrInvalidSelection.Error() + ": " + e.Message
}

func (e *SelectionError) Unwrap() error {
	return model.ErrInvalidSelection
}

// ValidateSelection checks the number of competitors for a mode. Selections
// above MaxCompetitors are rejected, never truncated.
func ValidateSelection(mode Mode, competitors []string) error {
	if mode != ModeSingle && mode != ModeComparison {
		return &SelectionError{Message: fmt.Sprintf("Modo de análisis desconocido: %q", mode)}
	}

	seen := map[string]bool{}
	for _, c := range competitors {
		if strings.TrimSpace(c) == "" {
			return &SelectionError{Message: "Hay un piloto vacío en la selección"}
		}
		if seen[c] {
			return &SelectionError{Message: fmt.Sprintf("El piloto %s está seleccionado dos veces", c)}
		}
		seen[c] = true
	}

	if len(competitors) > MaxCompetitors {
		return &SelectionError{Message: fmt.Sprintf("Solo se pueden seleccionar %d pilotos como máximo", MaxCompetitors)}
	}
	switch mode {
	case ModeSingle:
		if len(competitors) != 1 {
			return &SelectionError{Message: "Selecciona un piloto para ver su consistencia"}
		}
	case ModeComparison:
		if len(competitors) < MaxCompetitors {
			return &SelectionError{Message: fmt.Sprintf("Selecciona %d pilotos para compararlos", MaxCompetitors)}
		}
	}
	return nil
}

// UserMessage turns an error of the pipeline into the inline message shown to
// the user.
func UserMessage(err error) string {
	var selErr *SelectionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &selErr):
		return selErr.Message
	case errors.Is(err, model.ErrInvalidSelection):
		return "La selección no es válida, revisa la temporada, el Gran Premio y los pilotos"
	case errors.Is(err, model.ErrEmptyResult):
		return "No hay vueltas registradas para esta carrera, prueba con otro Gran Premio"
	case errors.Is(err, model.ErrDataUnavailable):
		return "No se han podido cargar los datos de la sesión, puede que aún no estén publicados"
	}
	return "Ha ocurrido un error inesperado"
}

// Kind names the error class for API clients.
func Kind(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidSelection):
		return "InvalidSelection"
	case errors.Is(err, model.ErrEmptyResult):
		return "EmptyResult"
	case errors.Is(err, model.ErrDataUnavailable):
		return "DataUnavailable"
	}
	return "Internal"
}
