package fat

import "errors"

// String renders the engine's internal result code as the short phrase
// given in its const declaration comment in fat.go (frMkfsAborted and
// frTooManyOpenFiles are reworded without the FatFs function and macro names).
func (fr fileResult) String() string {
	switch fr {
	case frOK:
		return "succeeded"
	case frDiskErr:
		return "a hard error occurred in the low level disk I/O layer"
	case frIntErr:
		return "assertion failed"
	case frNotReady:
		return "the physical drive cannot work"
	case frNoFile:
		return "could not find the file"
	case frNoPath:
		return "could not find the path"
	case frInvalidName:
		return "the path name format is invalid"
	case frDenied:
		return "access denied due to prohibited access or directory full"
	case frExist:
		return "access denied due to prohibited access"
	case frInvalidObject:
		return "the file/directory object is invalid"
	case frWriteProtected:
		return "the physical drive is write protected"
	case frInvalidDrive:
		return "the logical drive number is invalid"
	case frNotEnabled:
		return "the volume has no work area"
	case frNoFilesystem:
		return "there is no valid FAT volume"
	case frMkfsAborted:
		return "the mkfs operation aborted due to any problem"
	case frTimeout:
		return "could not get a grant to access the volume within defined period"
	case frLocked:
		return "the operation is rejected according to the file sharing policy"
	case frNotEnoughCore:
		return "LFN working buffer could not be allocated"
	case frTooManyOpenFiles:
		return "number of open files exceeds limit"
	case frInvalidParameter:
		return "given parameter is invalid"
	case frUnsupported:
		return "the operation is not supported"
	case frClosed:
		return "the file is closed"
	case frDirNotEmpty:
		return "the directory is not empty"
	default:
		return "fat generic error"
	}
}

// ErrorKind classifies the failure modes the driver can return, independent
// of the underlying block device or on-disk detail that produced them.
type ErrorKind uint8

const (
	KindOther ErrorKind = iota
	KindCorrupt
	KindNotFound
	KindAlreadyExists
	KindIsDir
	KindNotDir
	KindDirNotEmpty
	KindNoSpace
	KindTooBig
	KindReadOnly
	KindIO
	KindInvalidArg
)

func (k ErrorKind) String() string {
	switch k {
	case KindCorrupt:
		return "corrupt filesystem"
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindIsDir:
		return "is a directory"
	case KindNotDir:
		return "not a directory"
	case KindDirNotEmpty:
		return "directory not empty"
	case KindNoSpace:
		return "no space left on device"
	case KindTooBig:
		return "file too big"
	case KindReadOnly:
		return "filesystem is read-only"
	case KindIO:
		return "i/o error"
	case KindInvalidArg:
		return "invalid argument"
	default:
		return "fat error"
	}
}

// Error is the structured error type returned by the package-level entry
// points (Mount, OpenFile, Mkdir, Remove, Rmdir, Rename, Stat...).
// It wraps the lower-level engine error without losing it: errors.Is/As
// both work against the wrapped Err, and errors.Is(err, &Error{Kind: k})
// matches on the Kind alone.
type Error struct {
	Op   string // operation that failed, e.g. "open", "mkdir"
	Path string // path involved, if any
	Kind ErrorKind
	Err  error // underlying cause, often a fileResult
}

func (e *Error) Error() string {
	s := "fat: " + e.Op
	if e.Path != "" {
		s += " " + e.Path
	}
	s += ": " + e.Kind.String()
	if e.Err != nil && e.Err.Error() != e.Kind.String() {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, &Error{Kind: SomeKind}) by comparing against another *Error's Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// wrapErr builds the structured *Error for a failed operation, or returns
// nil when fr reports success.
func wrapErr(op, path string, fr fileResult) error {
	if fr == frOK {
		return nil
	}
	return &Error{Op: op, Path: path, Kind: fr.kind(), Err: fr}
}

// kind maps the engine's internal result codes onto the public ErrorKind
// taxonomy.
func (fr fileResult) kind() ErrorKind {
	switch fr {
	case frOK:
		return KindOther
	case frDiskErr, frTimeout:
		return KindIO
	case frNotReady, frNotEnabled, frNoFilesystem, frMkfsAborted:
		return KindCorrupt
	case frNoFile, frNoPath:
		return KindNotFound
	case frInvalidName, frInvalidParameter, frInvalidDrive:
		return KindInvalidArg
	case frDenied:
		return KindNoSpace
	case frExist:
		return KindAlreadyExists
	case frInvalidObject:
		return KindInvalidArg
	case frWriteProtected:
		return KindReadOnly
	case frLocked:
		return KindAlreadyExists
	case frNotEnoughCore:
		return KindTooBig
	case frTooManyOpenFiles:
		return KindTooBig
	case frDirNotEmpty:
		return KindDirNotEmpty
	default:
		return KindOther
	}
}

// newKindErr builds an *Error carrying kind directly, for the failure
// modes that have no corresponding fileResult code in the original
// engine (e.g. "is a directory"/"not a directory", which f_open folds
// into frNoFile/frNoPath instead of a distinct code).
func newKindErr(op, path string, kind ErrorKind) error {
	return &Error{Op: op, Path: path, Kind: kind}
}
