package blob

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestS3MapErr(t *testing.T) {
	s := &S3{bucket: "mnemo"}

	err := s.mapErr("exercises/x.json", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
	assert.ErrorIs(t, err, ErrNotFound)

	other := errors.New("connection refused")
	err = s.mapErr("exercises/x.json", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrNotFound)
}
