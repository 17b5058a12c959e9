package enigma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEncodedTitle(t *testing.T) {
	assert.Equal(t, BookTitle, Decode(EncodedTitle, DefaultShift))
	assert.Equal(t, "Zut, abc!", Decode("Avu, bcd!", 1))
	assert.Equal(t, "z", Decode("a", 1))
	assert.Equal(t, "Z", Decode("A", 27))
}

func TestDecodeInvertsEncode(t *testing.T) {
	inputs := []string{
		"",
		"Les plantes de la Ville Rose",
		"ABCXYZ abcxyz 0123 !?",
		"Jardin des Plantes, Toulouse 31000",
		"é à ç stay put",
	}
	for _, in := range inputs {
		for _, shift := range []int{1, 3, 13, 25, -4} {
			assert.Equal(t, in, Decode(Encode(in, shift), shift), "shift %d on %q", shift, in)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "JARDIN DES PLANTES", Normalize("  jardin des  plantés "))
	assert.Equal(t, "L'HERBORISTE", Normalize("l'herboriste"))
	assert.Equal(t, "", Normalize("   "))
}

func TestCheck(t *testing.T) {
	cases := []struct {
		name      string
		step      string
		sub       Submission
		correct   bool
		next      string
		completes int
		message   string
	}{
		{"book ok", StepBook, Submission{Answer: " les plantes de la ville rose"}, true, "/enigme-1/livre", 1, ""},
		{"book wrong", StepBook, Submission{Answer: "la ville rose"}, false, "", 0, "Ce n'est pas le bon titre. Réessayez !"},
		{"lab ok", StepLab, Submission{Sequence: []string{"atcg", "CGTA", "TACG", "gcta"}, Code: "1031"}, true, "/enigme-2/reunion", 2, ""},
		{"lab bad code", StepLab, Submission{Sequence: LabSequence, Code: "1301"}, false, "", 0, "La séquence ou le code est incorrect. Vérifiez vos données."},
		{"lab short", StepLab, Submission{Sequence: LabSequence[:3], Code: "1031"}, false, "", 0, "La séquence ou le code est incorrect. Vérifiez vos données."},
		{"oncopole ok", StepOncopole, Submission{Answers: []string{"sein", "Octobre", "rose"}, Code: "1031"}, true, "/enigme-2/reunion", 2, ""},
		{"oncopole wrong", StepOncopole, Submission{Answers: []string{"SEIN", "MAI", "ROSE"}, Code: "1031"}, false, "", 0, "Les réponses ou le code sont incorrects. Réessayez."},
		{"map ok", StepMap, Submission{Answer: "Jardin des Plantes", Pieces: []int{6, 5, 4, 3, 2, 1}}, true, "/enigme-4", 3, ""},
		{"map missing pieces", StepMap, Submission{Answer: "JARDIN DES PLANTES", Pieces: []int{1, 2, 3, 3, 4, 5}}, false, "", 0, "Vous devez d'abord reconstituer toute la carte !"},
		{"map wrong place", StepMap, Submission{Answer: "CAPITOLE", Pieces: []int{1, 2, 3, 4, 5, 6}}, false, "", 0, "Ce n'est pas le bon lieu. Analysez les indices de la carte."},
		{"plant ok", StepPlant, Submission{Answer: "taxus baccata"}, true, "/finale", 4, ""},
		{"plant wrong", StepPlant, Submission{Answer: "if"}, false, "", 0, "Ce n'est pas le bon nom. Analysez bien le dessin et le message caché."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Check(tc.step, tc.sub)
			require.NoError(t, err)
			assert.Equal(t, tc.correct, res.Correct)
			assert.Equal(t, tc.next, res.Next)
			assert.Equal(t, tc.completes, res.Completes)
			assert.Equal(t, tc.message, res.Message)
		})
	}
}

func TestCheckUnknownStep(t *testing.T) {
	_, err := Check("5", Submission{})
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00", FormatElapsed(0))
	assert.Equal(t, "00:59", FormatElapsed(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "01:35", FormatElapsed(95*time.Second))
	assert.Equal(t, "125:00", FormatElapsed(125*time.Minute))
	assert.Equal(t, "00:00", FormatElapsed(-time.Second))
}

func TestStepIndex(t *testing.T) {
	assert.Equal(t, 0, StepIndex(0))
	assert.Equal(t, 0, StepIndex(1))
	assert.Equal(t, 3, StepIndex(4))
	assert.Equal(t, 4, StepIndex(5))
	assert.Equal(t, 5, StepIndex(9))
}
