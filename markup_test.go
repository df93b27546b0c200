package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurnMarkup(t *testing.T) {
	fs := newFakeServer(t, "node-a", "node-b")
	doc := fs.put("node-b", "p1\n", "pdf")

	burned, err := fs.client().BurnMarkup(context.Background(), SourceFromWorkFile(doc), []byte(`{"marks":[]}`))

	require.NoError(t, err)
	assert.Equal(t, "node-b", burned.AffinityToken)
	assert.Equal(t, "pdf", burned.FileExtension)
	content, ok := fs.content(burned)
	require.True(t, ok)
	assert.Equal(t, "p1\nburned\n", content)
	assert.Equal(t, 1, fs.uploadCount("node-b"), "markup is uploaded next to the document")
}

func TestBurnMarkup_LocalDocument(t *testing.T) {
	fs := newFakeServer(t)

	burned, err := fs.client().BurnMarkup(context.Background(), SourceFromFile(writeTempFile(t, "doc.pdf", "p1\n")), []byte(`{}`))

	require.NoError(t, err)
	content, _ := fs.content(burned)
	assert.Equal(t, "p1\nburned\n", content)
}

func TestBurnMarkup_InvalidMarkup(t *testing.T) {
	fs := newFakeServer(t)
	doc := fs.put("", "p1\n", "pdf")

	_, err := fs.client().BurnMarkup(context.Background(), SourceFromWorkFile(doc), []byte("not json"))

	perr, ok := AsError(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, KindJobFailed, perr.Kind)
	assert.Equal(t, OperationMarkupBurn, perr.Op)
	assert.Equal(t, "Markup JSON is invalid and could not be burned into the document.", err.Error())
}

func TestBurnMarkup_Errors(t *testing.T) {
	fs := newFakeServer(t)
	c := fs.client()

	_, err := c.BurnMarkup(context.Background(), SourceFromWorkFile(fs.put("", "p1\n", "pdf")), nil)
	assert.ErrorIs(t, err, ErrEmptyFileData)

	_, err = c.BurnMarkup(context.Background(), SourceDocument{}, []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidSourceDocument)

	expired := RemoteWorkFile{FileID: "expired", FileExtension: "pdf"}
	_, err = c.BurnMarkup(context.Background(), SourceFromWorkFile(expired), []byte(`{}`))
	perr, ok := AsError(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, KindRejected, perr.Kind)
	assert.Equal(t, "Document work file does not exist. It may have expired.", err.Error())
}
