package enigma

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownStep = errors.New("unknown enigma step")

// Check steps, as they appear in /api/enigmas/:step/check.
const (
	StepBook     = "1"
	StepLab      = "2-labo"
	StepOncopole = "2-oncopole"
	StepMap      = "3"
	StepPlant    = "4"
)

const (
	EncodedTitle = "MFT QMBOUFT EF MB WJMMF SPTF"
	BookTitle    = "LES PLANTES DE LA VILLE ROSE"
	MeetingCode  = "1031"
	Location     = "JARDIN DES PLANTES"
	PlantName    = "TAXUS BACCATA"
	MapPieces    = 6
)

var (
	LabSequence     = []string{"ATCG", "CGTA", "TACG", "GCTA"}
	OncopoleAnswers = []string{"SEIN", "OCTOBRE", "ROSE"}
)

// MapPiece is one fragment of the enigma 3 map.
type MapPiece struct {
	ID       int
	Clue     string
	Position string
}

var Pieces = []MapPiece{
	{1, "Allées Jean Jaurès", "top-left"},
	{2, "Grand Rond", "top-center"},
	{3, "Muséum", "top-right"},
	{4, "Platanes centenaires", "bottom-left"},
	{5, "Jardin botanique", "bottom-center"},
	{6, "Carrefour Busca", "bottom-right"},
}

// Steps are the progress bar labels, one per enigma plus the finale.
var Steps = []string{"Le Livre", "Double Mission", "La Carte", "L'Herboriste", "Finale"}

// Submission carries whatever fields a step asks for; unused ones are
// ignored.
type Submission struct {
	Answer   string   `json:"answer"`
	Sequence []string `json:"sequence"`
	Answers  []string `json:"answers"`
	Code     string   `json:"code"`
	Pieces   []int    `json:"pieces"`
}

// Result tells the page whether to move on. Completes is the enigma number
// a correct answer finishes, or 0 when the step only leads to another page
// of the same enigma.
type Result struct {
	Correct   bool   `json:"correct"`
	Next      string `json:"next,omitempty"`
	Message   string `json:"message,omitempty"`
	Completes int    `json:"-"`
}

// Check validates a submission for step.
func Check(step string, sub Submission) (Result, error) {
	switch step {
	case StepBook:
		if Normalize(sub.Answer) == BookTitle {
			return Result{Correct: true, Next: "/enigme-1/livre", Completes: 1}, nil
		}
		return wrong("Ce n'est pas le bon titre. Réessayez !"), nil
	case StepLab:
		if matchAll(sub.Sequence, LabSequence) && Normalize(sub.Code) == MeetingCode {
			return Result{Correct: true, Next: "/enigme-2/reunion", Completes: 2}, nil
		}
		return wrong("La séquence ou le code est incorrect. Vérifiez vos données."), nil
	case StepOncopole:
		if matchAll(sub.Answers, OncopoleAnswers) && Normalize(sub.Code) == MeetingCode {
			return Result{Correct: true, Next: "/enigme-2/reunion", Completes: 2}, nil
		}
		return wrong("Les réponses ou le code sont incorrects. Réessayez."), nil
	case StepMap:
		if countPieces(sub.Pieces) != MapPieces {
			return wrong("Vous devez d'abord reconstituer toute la carte !"), nil
		}
		if Normalize(sub.Answer) == Location {
			return Result{Correct: true, Next: "/enigme-4", Completes: 3}, nil
		}
		return wrong("Ce n'est pas le bon lieu. Analysez les indices de la carte."), nil
	case StepPlant:
		if Normalize(sub.Answer) == PlantName {
			return Result{Correct: true, Next: "/finale", Completes: 4}, nil
		}
		return wrong("Ce n'est pas le bon nom. Analysez bien le dessin et le message caché."), nil
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownStep, step)
}

func wrong(message string) Result {
	return Result{Correct: false, Message: message}
}

func matchAll(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if Normalize(got[i]) != want[i] {
			return false
		}
	}
	return true
}

// countPieces counts distinct valid piece ids.
func countPieces(ids []int) int {
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id >= 1 && id <= MapPieces {
			seen[id] = true
		}
	}
	return len(seen)
}

// StepIndex maps a room's current enigma onto the progress bar.
func StepIndex(currentEnigma int) int {
	switch {
	case currentEnigma < 1:
		return 0
	case currentEnigma > len(Steps):
		return len(Steps)
	}
	return currentEnigma - 1
}

// FormatElapsed renders whole elapsed time as mm:ss. Minutes keep growing
// past 59.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
