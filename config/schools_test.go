package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSchoolNames(t *testing.T) {
	names := GetSchoolNames()

	assert.Len(t, names, len(SupportedSchools))
	assert.Contains(t, names, "UNSW")
	assert.Contains(t, names, "USYD")
}

func TestGetSchoolByName(t *testing.T) {
	school := GetSchoolByName("UNSW")
	require.NotNil(t, school)
	assert.Equal(t, "UNSW", school.Name)
	require.Len(t, school.Campus, 2)

	assert.Nil(t, GetSchoolByName("unsw"))
	assert.Nil(t, GetSchoolByName("Hogwarts"))
	assert.Nil(t, GetSchoolByName(""))
}
