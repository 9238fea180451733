package studio

import "errors"

var (
	ErrGenerationTimeout  = errors.New("generation did not finish in time")
	ErrReferenceNotFound  = errors.New("no shareable reference found")
	ErrAmbiguousReference = errors.New("more than one shareable reference found")
	ErrDownloadTimeout    = errors.New("download did not complete")
)
