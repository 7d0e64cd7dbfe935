package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to FileStatus
		want     bool
	}{
		{FilePending, FileVerified, true},
		{FilePending, FileRejected, true},
		{FileVerified, FilePending, true},
		{FileRejected, FilePending, true},
		{FileVerified, FileRejected, false},
		{FileRejected, FileVerified, false},
		{FilePending, FilePending, false},
		{FileStatus("archived"), FilePending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestFileStatus_Valid(t *testing.T) {
	assert.True(t, FilePending.Valid())
	assert.True(t, FileVerified.Valid())
	assert.True(t, FileRejected.Valid())
	assert.False(t, FileStatus("").Valid())
	assert.False(t, FileStatus("Verified").Valid())
}
