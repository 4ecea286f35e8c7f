// Package filter compiles expr-lang expressions that select download tasks
// and drive files.
//
// Task expressions see Name, Phase ("running", "pending", "error",
// "complete"), Progress, FileSize, Message and Created, plus isRunning(),
// isPending(), isError() and isComplete(). File expressions see Name, Kind,
// Size, MimeType and Created, plus isFolder() and ext(). Both share the
// case-insensitive string helpers icontains, hasPrefix and hasSuffix, plus
// lower, upper, daysSince, daysAgo and now. The built-in contains, startsWith
// and endsWith operators stay available and are case-sensitive.
package filter

import (
	"maps"
	"path"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/s0up4200/pikfront/backend"
)

// DefaultCacheSize is the number of compiled programs NewCompiler keeps
const DefaultCacheSize = 100

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithCache sets the compiled program cache size; zero disables caching
func WithCache(size int) CompilerOption {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		} else {
			c.cache = nil
		}
	}
}

// WithCustomFunctions adds helper functions to every environment
func WithCustomFunctions(funcs map[string]any) CompilerOption {
	return func(c *Compiler) {
		maps.Copy(c.helpers, funcs)
	}
}

// Compiler turns expressions into reusable programs
type Compiler struct {
	helpers map[string]any
	cache   *lruCache
}

// NewCompiler creates a compiler with the default cache
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		helpers: make(map[string]any, 16),
		cache:   newLRUCache(DefaultCacheSize),
	}
	addHelperFunctions(c.helpers)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Program is a compiled boolean expression. It is safe for concurrent use.
type Program struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// Compile compiles an expression, returning a cached program when possible
func (c *Compiler) Compile(expression string) (*Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(compileEnvironment(c.helpers)),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	p := &Program{expression: expression, program: program, helpers: c.helpers}
	if c.cache != nil {
		c.cache.Put(expression, p)
	}
	return p, nil
}

// CacheSize returns the number of cached programs
func (c *Compiler) CacheSize() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// ClearCache drops every cached program
func (c *Compiler) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Expression returns the source expression
func (p *Program) Expression() string {
	return p.expression
}

// MatchTask evaluates the program against a task
func (p *Program) MatchTask(task *backend.Task) (bool, error) {
	return p.run(taskEnvironment(p.helpers, task), task.Name)
}

// MatchFile evaluates the program against a drive entry
func (p *Program) MatchFile(file *backend.FileEntry) (bool, error) {
	return p.run(fileEnvironment(p.helpers, file), file.Name)
}

func (p *Program) run(env map[string]any, item string) (bool, error) {
	result, err := expr.Run(p.program, env)
	if err != nil {
		return false, &EvaluationError{Expression: p.expression, Item: item, Err: err}
	}
	matched, _ := result.(bool)
	return matched, nil
}

// Tasks returns the tasks matching p, in input order. Tasks that fail to
// evaluate are treated as non-matching. A nil program matches everything.
func Tasks(p *Program, tasks []backend.Task) []backend.Task {
	if p == nil {
		return tasks
	}
	matches := make([]backend.Task, 0, len(tasks))
	for i := range tasks {
		if ok, err := p.MatchTask(&tasks[i]); err == nil && ok {
			matches = append(matches, tasks[i])
		}
	}
	return matches
}

// Files returns the entries matching p, in input order
func Files(p *Program, files []backend.FileEntry) []backend.FileEntry {
	if p == nil {
		return files
	}
	matches := make([]backend.FileEntry, 0, len(files))
	for i := range files {
		if ok, err := p.MatchFile(&files[i]); err == nil && ok {
			matches = append(matches, files[i])
		}
	}
	return matches
}

func addHelperFunctions(env map[string]any) {
	env["daysSince"] = func(t time.Time) int {
		if t.IsZero() {
			return 0
		}
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["icontains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefix"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffix"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// compileEnvironment declares every variable and helper with its type so
// typos in helper calls fail at compile time.
func compileEnvironment(helpers map[string]any) map[string]any {
	env := make(map[string]any, len(helpers)+16)
	maps.Copy(env, helpers)
	maps.Copy(env, taskEnvironment(nil, &backend.Task{}))
	maps.Copy(env, fileEnvironment(nil, &backend.FileEntry{}))
	return env
}

func taskEnvironment(helpers map[string]any, task *backend.Task) map[string]any {
	env := make(map[string]any, len(helpers)+12)
	maps.Copy(env, helpers)

	phase := task.Phase
	env["Name"] = task.Name
	env["Phase"] = phase.Short()
	env["Progress"] = task.ClampedProgress()
	env["FileSize"] = task.FileSize.Int64()
	env["Message"] = task.Message
	env["Created"] = task.Created()
	env["isRunning"] = func() bool { return phase == backend.PhaseRunning }
	env["isPending"] = func() bool { return phase == backend.PhasePending }
	env["isError"] = func() bool { return phase == backend.PhaseError }
	env["isComplete"] = func() bool { return phase == backend.PhaseComplete }
	return env
}

func fileEnvironment(helpers map[string]any, file *backend.FileEntry) map[string]any {
	env := make(map[string]any, len(helpers)+8)
	maps.Copy(env, helpers)

	folder := file.IsFolder()
	extension := strings.ToLower(strings.TrimPrefix(path.Ext(file.Name), "."))
	env["Name"] = file.Name
	env["Kind"] = file.Kind
	env["Size"] = file.Size.Int64()
	env["MimeType"] = file.MimeType
	env["Created"] = file.Created()
	env["isFolder"] = func() bool { return folder }
	env["ext"] = func() string { return extension }
	return env
}
