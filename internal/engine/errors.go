package engine

import "errors"

var (
	// ErrConfirmationRequired indicates a destructive operation was requested
	// without confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrNoBackupStore indicates the operation needs a backup store and none
	// is configured.
	ErrNoBackupStore = errors.New("no backup store configured")

	// ErrNoBackup indicates the backup store holds no copy of an item.
	ErrNoBackup = errors.New("no backup copy")

	// ErrAlreadyInstalled indicates the item is already present on disk.
	ErrAlreadyInstalled = errors.New("already installed")

	// ErrUnsupportedAction indicates an action the item kind cannot perform.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrNoModelReferences indicates a workflow file loads no model files.
	ErrNoModelReferences = errors.New("workflow references no models")

	// ErrNoWorkflowsDir indicates a workflow install without a workflows directory.
	ErrNoWorkflowsDir = errors.New("no workflows directory configured")
)
