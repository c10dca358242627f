package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignCode(t *testing.T) {
	existing := []string{"ABC-2026-0001", "XYZ-2026-0337", "ABC-2025-0900"}

	code := AssignCode("Fernanda", "Gómez", "García", 2026, existing)
	assert.Equal(t, "FGG-2026-0338", code)
}

func TestAssignCodeMissingMaternal(t *testing.T) {
	code := AssignCode("Ana", "Beltrán", "", 2026, nil)
	assert.Equal(t, "ABX-2026-0001", code)
}

func TestNextSequenceSkipsMalformedSuffixes(t *testing.T) {
	existing := []string{
		"AAA-2026-0007",
		"BBB-2026-garbage",
		"CCC-2026-",
		"plain",
		"DDD-2025-0500",
	}
	assert.Equal(t, 8, NextSequence(2026, existing))
}

func TestNextSequenceEmptyYear(t *testing.T) {
	assert.Equal(t, 1, NextSequence(2026, []string{"AAA-2025-0042"}))
	assert.Equal(t, 1, NextSequence(2026, nil))
}

func TestAssignCodeCollidingInitialsStayDistinct(t *testing.T) {
	first := AssignCode("Mario", "Pérez", "López", 2026, nil)
	second := AssignCode("María", "Paredes", "Luna", 2026, []string{first})

	assert.Equal(t, "MPL-2026-0001", first)
	assert.Equal(t, "MPL-2026-0002", second)
	assert.NotEqual(t, first, second)
}
