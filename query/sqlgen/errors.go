package sqlgen

import "errors"

var (
	ErrIncompleteMetadata = errors.New("entity has no schema or table")
	ErrNoScope            = errors.New("select rendered without a compiled scope")
	ErrNoSaver            = errors.New("unsaved association and no saver configured")
	ErrUnsavedReference   = errors.New("association has no identifier after saving")
	ErrReferenceCycle     = errors.New("unsaved associations reference each other")
	ErrNothingToUpdate    = errors.New("update sets no columns")
	ErrRenderPanic        = errors.New("render panicked")
)
