package wasip1

import (
	"sort"

	"github.com/tetratelabs/wazero/api"
)

// ModuleName is the import module name the Preview1 ABI keys every
// syscall under.
const ModuleName = "wasi_snapshot_preview1"

// FunctionStart is the entry point a WASI command module must export.
const FunctionStart = "_start"

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

func sig(params ...api.ValueType) signature {
	return signature{params: params, results: []api.ValueType{i32}}
}

// abiSignatures is the full snapshot-01 catalog. Names absent from the
// merged provider table are still exported, as aborting stubs, so a
// guest import of any Preview1 function always resolves.
var abiSignatures = map[string]signature{
	"args_get":                sig(i32, i32),
	"args_sizes_get":          sig(i32, i32),
	"environ_get":             sig(i32, i32),
	"environ_sizes_get":       sig(i32, i32),
	"clock_res_get":           sig(i32, i32),
	"clock_time_get":          sig(i32, i64, i32),
	"fd_advise":               sig(i32, i64, i64, i32),
	"fd_allocate":             sig(i32, i64, i64),
	"fd_close":                sig(i32),
	"fd_datasync":             sig(i32),
	"fd_fdstat_get":           sig(i32, i32),
	"fd_fdstat_set_flags":     sig(i32, i32),
	"fd_fdstat_set_rights":    sig(i32, i64, i64),
	"fd_filestat_get":         sig(i32, i32),
	"fd_filestat_set_size":    sig(i32, i64),
	"fd_filestat_set_times":   sig(i32, i64, i64, i32),
	"fd_pread":                sig(i32, i32, i32, i64, i32),
	"fd_prestat_get":          sig(i32, i32),
	"fd_prestat_dir_name":     sig(i32, i32, i32),
	"fd_pwrite":               sig(i32, i32, i32, i64, i32),
	"fd_read":                 sig(i32, i32, i32, i32),
	"fd_readdir":              sig(i32, i32, i32, i64, i32),
	"fd_renumber":             sig(i32, i32),
	"fd_seek":                 sig(i32, i64, i32, i32),
	"fd_sync":                 sig(i32),
	"fd_tell":                 sig(i32, i32),
	"fd_write":                sig(i32, i32, i32, i32),
	"path_create_directory":   sig(i32, i32, i32),
	"path_filestat_get":       sig(i32, i32, i32, i32, i32),
	"path_filestat_set_times": sig(i32, i32, i32, i32, i64, i64, i32),
	"path_link":               sig(i32, i32, i32, i32, i32, i32, i32),
	"path_open":               sig(i32, i32, i32, i32, i32, i64, i64, i32, i32),
	"path_readlink":           sig(i32, i32, i32, i32, i32, i32),
	"path_remove_directory":   sig(i32, i32, i32),
	"path_rename":             sig(i32, i32, i32, i32, i32, i32),
	"path_symlink":            sig(i32, i32, i32, i32, i32),
	"path_unlink_file":        sig(i32, i32, i32),
	"poll_oneoff":             sig(i32, i32, i32, i32),
	"proc_exit":               {params: []api.ValueType{i32}},
	"proc_raise":              sig(i32),
	"random_get":              sig(i32, i32),
	"sched_yield":             sig(),
	"sock_accept":             sig(i32, i32, i32),
	"sock_recv":               sig(i32, i32, i32, i32, i32, i32),
	"sock_send":               sig(i32, i32, i32, i32, i32),
	"sock_shutdown":           sig(i32, i32),
}

// abiNames returns the catalog in deterministic order.
func abiNames() []string {
	names := make([]string, 0, len(abiSignatures))
	for name := range abiSignatures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newSyscall builds a Syscall with the catalog signature for name.
// Panics on unknown names; providers only contribute catalog entries.
func newSyscall(name string, fn Func) Syscall {
	s, ok := abiSignatures[name]
	if !ok {
		panic("wasip1: unknown syscall name " + name)
	}
	return Syscall{Name: name, Params: s.params, Results: s.results, Func: fn}
}

// File types reported by fdstat and filestat, per the witx filetype enum.
const (
	FiletypeUnknown      uint8 = 0
	FiletypeBlockDevice  uint8 = 1
	FiletypeCharDevice   uint8 = 2
	FiletypeDirectory    uint8 = 3
	FiletypeRegularFile  uint8 = 4
	FiletypeSocketDgram  uint8 = 5
	FiletypeSocketStream uint8 = 6
	FiletypeSymlink      uint8 = 7
)

// path_open oflags bits.
const (
	oflagCreat     = 1 << 0
	oflagDirectory = 1 << 1
	oflagExcl      = 1 << 2
	oflagTrunc     = 1 << 3
)

// fdflags bits.
const (
	fdflagAppend = 1 << 0
)

// Rights bits consulted by path_open; the host grants everything else
// implicitly since the capability model is out of scope.
const (
	rightFdRead  = 1 << 1
	rightFdWrite = 1 << 6
)
