package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProfileID(t *testing.T) {
	assert.NoError(t, ValidateProfileID("alice"))
	assert.NoError(t, ValidateProfileID("team-42"))
	assert.NoError(t, ValidateProfileID("a.b_c"))

	assert.Error(t, ValidateProfileID(""))
	assert.Error(t, ValidateProfileID("has spaces"))
	assert.Error(t, ValidateProfileID("-leading-dash"))
	assert.Error(t, ValidateProfileID("slash/inside"))
}

func TestValidateWorkspaceName(t *testing.T) {
	assert.NoError(t, ValidateWorkspaceName("notes"))
	assert.NoError(t, ValidateWorkspaceName("proj.v2"))

	assert.Error(t, ValidateWorkspaceName(""))
	assert.Error(t, ValidateWorkspaceName("bad:name"))
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget("vault://notes"))
	assert.NoError(t, ValidateTarget("vault://team-42.archive"))

	assert.Error(t, ValidateTarget(""))
	assert.Error(t, ValidateTarget("notes"))
	assert.Error(t, ValidateTarget("http://notes"))
	assert.Error(t, ValidateTarget("vault://"))
	assert.Error(t, ValidateTarget("vault://bad name"))
}
