package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSubject(t *testing.T) {
	assert.Equal(t, "[ReqNotify] Pending approvals", BuildSubject("Pending approvals"))
}

func TestBuildEmailHTML(t *testing.T) {
	html, err := buildEmailHTML("Pending approvals", "Request R1 is awaiting action.\nRequest R2 is awaiting action.")
	require.NoError(t, err)

	assert.Contains(t, html, "Pending approvals")
	assert.Contains(t, html, "Request R1 is awaiting action.")
	assert.Contains(t, html, "Request R2 is awaiting action.")
	assert.Contains(t, html, "ReqNotify")
}

func TestBuildEmailHTML_EscapesContent(t *testing.T) {
	html, err := buildEmailHTML("<script>alert(1)</script>", "body")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
}
