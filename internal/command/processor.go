// Package command implements the text command set served over WebSocket:
// SET, GET, DEL, DUMP, LOAD and PING against an in-memory document store.
package command

import (
	"strings"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/internal/document"
)

type handlerFunc func(p *Processor, args string) (string, error)

var handlers = map[string]handlerFunc{
	"set":  (*Processor).set,
	"get":  (*Processor).get,
	"del":  (*Processor).del,
	"dump": (*Processor).dump,
	"load": (*Processor).load,
	"ping": (*Processor).ping,
}

// Processor owns the document store and executes commands against it.
//
// A Processor is not safe for concurrent use. The server serializes calls
// to HandleMessage with its store lock.
type Processor struct {
	store map[string]*document.Value
}

var _ kagikachi.MessageHandler = (*Processor)(nil)

// NewProcessor returns a processor with an empty store.
func NewProcessor() *Processor {
	return &Processor{store: make(map[string]*document.Value)}
}

// HandleMessage executes a text message and returns the reply. Any other
// message kind is answered with ReplyInvalidMessageType.
func (p *Processor) HandleMessage(msg kagikachi.Message) string {
	if msg.Kind != kagikachi.TextMessage {
		return kagikachi.ReplyInvalidMessageType
	}
	return p.Execute(msg.Text())
}

// Execute runs one command line and returns the reply text. The keyword is
// everything before the first space and is matched case-insensitively.
func (p *Processor) Execute(line string) string {
	reply, err := p.execute(line)
	if err != nil {
		return err.Error()
	}
	return reply
}

func (p *Processor) execute(line string) (string, error) {
	name, args, _ := strings.Cut(line, " ")
	h, ok := handlers[strings.ToLower(name)]
	if !ok {
		return "", ErrUnknownCommand
	}
	return h(p, args)
}

// Len returns the number of top-level keys.
func (p *Processor) Len() int {
	return len(p.store)
}

// splitKey separates the top-level key from the path below it.
func splitKey(arg string) (key, path string, nested bool) {
	return strings.Cut(arg, document.PathSeparator)
}

func (p *Processor) set(args string) (string, error) {
	target, raw, ok := strings.Cut(args, " ")
	if !ok {
		return "", ErrInvalidArguments
	}
	val, err := document.Parse(raw)
	if err != nil {
		return "", &ValueError{Err: err}
	}

	key, path, nested := splitKey(target)
	if !nested {
		p.store[key] = val
		return kagikachi.ReplyOK, nil
	}
	entry, ok := p.store[key]
	if !ok {
		return "", document.ErrKeyNotFound
	}
	if err := entry.Set(path, val); err != nil {
		return "", err
	}
	return kagikachi.ReplyOK, nil
}

func (p *Processor) get(args string) (string, error) {
	key, path, _ := splitKey(args)
	entry, ok := p.store[key]
	if !ok {
		return "", document.ErrKeyNotFound
	}
	val, err := entry.Get(path)
	if err != nil {
		return "", err
	}
	return val.String(), nil
}

func (p *Processor) del(args string) (string, error) {
	key, path, nested := splitKey(args)
	if !nested {
		delete(p.store, key)
		return kagikachi.ReplyOK, nil
	}
	entry, ok := p.store[key]
	if !ok {
		return "", document.ErrKeyNotFound
	}
	if err := entry.Delete(path); err != nil {
		return "", err
	}
	return kagikachi.ReplyOK, nil
}

func (p *Processor) dump(string) (string, error) {
	return document.Object(p.store).String(), nil
}

func (p *Processor) load(args string) (string, error) {
	val, err := document.Parse(args)
	if err != nil {
		return "", &ValueError{Err: err}
	}
	if val.Kind() != document.KindObject {
		return "", document.ErrInvalidType
	}
	for k, v := range val.Members() {
		p.store[k] = v
	}
	return kagikachi.ReplyOK, nil
}

func (p *Processor) ping(string) (string, error) {
	return kagikachi.ReplyPong, nil
}
