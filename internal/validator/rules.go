// Package validator implements the per-language static validator (spec
// section 4.1): validate(code, language) -> (ok, reason). Each language's
// denylist is modeled as data here, separated from the token walkers in
// the per-language files, so rules can be tested and extended without
// touching traversal code.
//
// No third-party tokenizer or tree-sitter-equivalent grammar library
// appears anywhere in the example pack's import graph for any of the five
// target grammars (Python, JavaScript, C, C++, Rust) — the only AST
// library in the corpus is original_source's Python tree_sitter usage,
// which is not a Go library. This package is therefore hand-rolled on top
// of the standard library's regexp and strings packages; see DESIGN.md for
// the justification (the rate limiter in internal/middleware is the other
// stdlib-only component in the repo).
package validator

// PythonBlockedOperations are direct calls rejected outright: eval(),
// exec(), etc.
var PythonBlockedOperations = map[string]bool{
	"eval": true, "exec": true, "compile": true, "open": true, "file": true,
	"__import__": true, "globals": true, "locals": true, "vars": true,
	"dir": true, "getattr": true, "setattr": true, "hasattr": true, "delattr": true,
}

// PythonBlockedModules are import targets (leading package only) that are
// rejected.
var PythonBlockedModules = map[string]bool{
	"os": true, "sys": true, "io": true, "pathlib": true, "glob": true,
	"shutil": true, "tempfile": true, "subprocess": true, "multiprocessing": true,
	"threading": true, "asyncio": true, "socket": true, "urllib": true, "http": true,
	"ftplib": true, "smtplib": true, "ssl": true, "requests": true, "importlib": true,
	"imp": true, "code": true, "codeop": true, "runpy": true, "ctypes": true,
	"pty": true, "pwd": true, "grp": true, "resource": true, "signal": true,
	"platform": true, "sysconfig": true, "pickle": true, "shelve": true,
	"marshal": true, "dill": true,
}

// PythonSafeDunders are the only dunder attribute names allowed.
var PythonSafeDunders = map[string]bool{
	"__str__": true, "__repr__": true, "__len__": true, "__init__": true,
}

// JSBlockedCalls are function names whose invocation is rejected.
var JSBlockedCalls = map[string]bool{
	"eval": true, "Function": true, "require": true,
}

// JSBlockedModules are require() targets rejected when passed as a string
// literal argument.
var JSBlockedModules = map[string]bool{
	"fs": true, "child_process": true, "net": true, "dgram": true,
	"cluster": true, "vm": true, "repl": true, "os": true, "http": true,
	"https": true, "dns": true, "tls": true, "worker_threads": true,
}

// JSMemberPatterns are dangerous member-access substrings.
var JSMemberPatterns = []string{
	"process.binding", "process.mainModule", "global.process",
	"globalThis.", "module.constructor", "this.constructor",
}

// CBlockedCalls are libc function names whose invocation is rejected. The
// prefix matches (exec*, _exec*) are listed in CBlockedCallPrefixes.
var CBlockedCalls = map[string]bool{
	"system": true, "popen": true, "fork": true, "vfork": true, "fopen": true,
	"open": true, "dlopen": true, "dlsym": true, "socket": true, "bind": true,
	"listen": true, "accept": true,
}

var CBlockedCallPrefixes = []string{"exec", "_exec"}

// CBlockedIncludeSubstrings are header paths rejected by substring match.
var CBlockedIncludeSubstrings = []string{
	"sys/", "unistd.h", "fcntl.h", "dlfcn.h", "netinet/", "arpa/", "netdb.h",
}

// RustBlockedUsePrefixes are `use` path prefixes rejected outright.
var RustBlockedUsePrefixes = []string{
	"std::fs", "std::io::Read", "std::io::Write", "std::path", "std::net",
	"std::process", "std::os", "std::env",
}
