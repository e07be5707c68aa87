// Package highlight provides the shared syntax-highlighting capability used
// by the cell renderer.
package highlight

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// ErrUnavailable is returned when highlighting cannot be performed, either
// because the engine failed to initialise or the language is unknown.
var ErrUnavailable = errors.New("highlight: unavailable")

// Highlighter turns source text into highlighted HTML.
type Highlighter interface {
	Highlight(code, language string) (string, error)
}

// Options configures a Chroma highlighter.
type Options struct {
	// Style is a chroma style name, e.g. "github".
	Style string
	// Languages are lexers resolved up front. Other languages are looked up
	// on first use.
	Languages []string
	Logger    *slog.Logger
}

type engine struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
	lexers    map[string]chroma.Lexer
}

type initState struct {
	done chan struct{}
	eng  *engine
	err  error
}

// Chroma is a Highlighter backed by chroma. The engine loads on first use;
// concurrent callers wait for the same load. A failed load is kept until
// Retry is called, and every call in between returns ErrUnavailable.
type Chroma struct {
	opts   Options
	logger *slog.Logger
	load   func() (*engine, error)

	mu    sync.Mutex
	state *initState
}

var _ Highlighter = (*Chroma)(nil)

// NewChroma returns a lazily initialised chroma highlighter.
func NewChroma(opts Options) *Chroma {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chroma{opts: opts, logger: logger}
	c.load = c.loadEngine
	return c
}

func (c *Chroma) loadEngine() (*engine, error) {
	name := c.opts.Style
	if name == "" {
		name = "github"
	}
	style, ok := styles.Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown style %q", name)
	}
	eng := &engine{
		style:     style,
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		lexers:    make(map[string]chroma.Lexer, len(c.opts.Languages)),
	}
	for _, lang := range c.opts.Languages {
		l := lexers.Get(lang)
		if l == nil {
			return nil, fmt.Errorf("no lexer for %q", lang)
		}
		eng.lexers[strings.ToLower(lang)] = chroma.Coalesce(l)
	}
	return eng, nil
}

func (c *Chroma) engine() (*engine, error) {
	c.mu.Lock()
	st := c.state
	if st != nil {
		c.mu.Unlock()
		<-st.done
	} else {
		st = &initState{done: make(chan struct{})}
		c.state = st
		c.mu.Unlock()

		st.eng, st.err = c.safeLoad()
		close(st.done)
		if st.err != nil {
			c.logger.Warn("highlight: init failed, using plain text",
				slog.String("error", st.err.Error()))
		} else {
			c.logger.Debug("highlight: engine ready", slog.Int("lexers", len(st.eng.lexers)))
		}
	}
	if st.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, st.err)
	}
	return st.eng, nil
}

func (c *Chroma) safeLoad() (eng *engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			eng, err = nil, fmt.Errorf("panic during init: %v", r)
		}
	}()
	return c.load()
}

// Retry clears a failed initialisation so the next call loads again. It is a
// no-op while a load is running or after a successful one.
func (c *Chroma) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return
	}
	select {
	case <-c.state.done:
		if c.state.err != nil {
			c.state = nil
		}
	default:
	}
}

// Highlight renders code with the lexer for language.
func (c *Chroma) Highlight(code, language string) (string, error) {
	eng, err := c.engine()
	if err != nil {
		return "", err
	}
	lexer := eng.lexer(language)
	if lexer == nil {
		return "", fmt.Errorf("%w: no lexer for %q", ErrUnavailable, language)
	}
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("%w: tokenise: %v", ErrUnavailable, err)
	}
	var b strings.Builder
	if err := eng.formatter.Format(&b, eng.style, it); err != nil {
		return "", fmt.Errorf("%w: format: %v", ErrUnavailable, err)
	}
	return b.String(), nil
}

// CSS returns the stylesheet for the class-based markup Highlight emits.
func (c *Chroma) CSS() (string, error) {
	eng, err := c.engine()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := eng.formatter.WriteCSS(&b, eng.style); err != nil {
		return "", fmt.Errorf("highlight: write css: %w", err)
	}
	return b.String(), nil
}

func (e *engine) lexer(language string) chroma.Lexer {
	key := strings.ToLower(language)
	if l, ok := e.lexers[key]; ok {
		return l
	}
	if l := lexers.Get(key); l != nil {
		return chroma.Coalesce(l)
	}
	return nil
}
