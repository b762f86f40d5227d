package grading

import "context"

// Provider is an upstream language-model service able to grade a submission.
//
// Upload returns a nil handle when the provider takes the file inline.
// Cleanup must accept the handle returned by Upload and is only called for a
// non-nil handle.
type Provider interface {
	Name() string
	Upload(ctx context.Context, sub Submission) (*FileHandle, error)
	Complete(ctx context.Context, req Request, sub Submission, handle *FileHandle) (string, error)
	Cleanup(ctx context.Context, handle *FileHandle) error
}
