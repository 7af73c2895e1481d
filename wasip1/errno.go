package wasip1

import (
	"strconv"

	"github.com/metascan/wasihost/errors"
)

// Errno is a WASI Preview1 numeric error code, returned to the guest as
// the i32 result of most syscalls.
type Errno uint32

// Preview1 errno values, per the snapshot-01 witx definitions.
const (
	ESUCCESS        Errno = 0
	E2BIG           Errno = 1
	EACCES          Errno = 2
	EADDRINUSE      Errno = 3
	EADDRNOTAVAIL   Errno = 4
	EAFNOSUPPORT    Errno = 5
	EAGAIN          Errno = 6
	EALREADY        Errno = 7
	EBADF           Errno = 8
	EBADMSG         Errno = 9
	EBUSY           Errno = 10
	ECANCELED       Errno = 11
	ECHILD          Errno = 12
	ECONNABORTED    Errno = 13
	ECONNREFUSED    Errno = 14
	ECONNRESET      Errno = 15
	EDEADLK         Errno = 16
	EDESTADDRREQ    Errno = 17
	EDOM            Errno = 18
	EDQUOT          Errno = 19
	EEXIST          Errno = 20
	EFAULT          Errno = 21
	EFBIG           Errno = 22
	EHOSTUNREACH    Errno = 23
	EIDRM           Errno = 24
	EILSEQ          Errno = 25
	EINPROGRESS     Errno = 26
	EINTR           Errno = 27
	EINVAL          Errno = 28
	EIO             Errno = 29
	EISCONN         Errno = 30
	EISDIR          Errno = 31
	ELOOP           Errno = 32
	EMFILE          Errno = 33
	EMLINK          Errno = 34
	EMSGSIZE        Errno = 35
	EMULTIHOP       Errno = 36
	ENAMETOOLONG    Errno = 37
	ENETDOWN        Errno = 38
	ENETRESET       Errno = 39
	ENETUNREACH     Errno = 40
	ENFILE          Errno = 41
	ENOBUFS         Errno = 42
	ENODEV          Errno = 43
	ENOENT          Errno = 44
	ENOEXEC         Errno = 45
	ENOLCK          Errno = 46
	ENOLINK         Errno = 47
	ENOMEM          Errno = 48
	ENOMSG          Errno = 49
	ENOPROTOOPT     Errno = 50
	ENOSPC          Errno = 51
	ENOSYS          Errno = 52
	ENOTCONN        Errno = 53
	ENOTDIR         Errno = 54
	ENOTEMPTY       Errno = 55
	ENOTRECOVERABLE Errno = 56
	ENOTSOCK        Errno = 57
	ENOTSUP         Errno = 58
	ENOTTY          Errno = 59
	ENXIO           Errno = 60
	EOVERFLOW       Errno = 61
	EOWNERDEAD      Errno = 62
	EPERM           Errno = 63
	EPIPE           Errno = 64
	EPROTO          Errno = 65
	EPROTONOSUPPORT Errno = 66
	EPROTOTYPE      Errno = 67
	ERANGE          Errno = 68
	EROFS           Errno = 69
	ESPIPE          Errno = 70
	ESRCH           Errno = 71
	ESTALE          Errno = 72
	ETIMEDOUT       Errno = 73
	ETXTBSY         Errno = 74
	EXDEV           Errno = 75
	ENOTCAPABLE     Errno = 76
)

var errnoNames = map[Errno]string{
	ESUCCESS: "ESUCCESS",
	EBADF:    "EBADF",
	EEXIST:   "EEXIST",
	EFAULT:   "EFAULT",
	EINVAL:   "EINVAL",
	EIO:      "EIO",
	EISDIR:   "EISDIR",
	ENOENT:   "ENOENT",
	ENOSYS:   "ENOSYS",
	ENOTDIR:  "ENOTDIR",
	ENOTSUP:  "ENOTSUP",
	ESPIPE:   "ESPIPE",
}

func (e Errno) String() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return "errno(" + strconv.FormatUint(uint64(e), 10) + ")"
}

// ErrnoFor translates a structured host error into the numeric code
// returned to the guest. Fatal kinds never reach this translation; they
// abort the invocation at the dispatcher instead.
func ErrnoFor(err error) Errno {
	if err == nil {
		return ESUCCESS
	}
	kind, ok := errors.KindOf(err)
	if !ok {
		return EIO
	}
	switch kind {
	case errors.KindNotFound:
		return ENOENT
	case errors.KindIsADirectory:
		return EISDIR
	case errors.KindBadDescriptor:
		return EBADF
	case errors.KindInvalidPath:
		return EINVAL
	case errors.KindInvalidInput:
		return EINVAL
	default:
		return EIO
	}
}
