package client

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/reiver/go-oi"
	"github.com/reiver/go-telnet"

	"github.com/dogrut/rtreed/index"
	"github.com/dogrut/rtreed/logging"
	"github.com/dogrut/rtreed/model"
)

var log = logging.New("telnet")

// ConnectionHandler parses a line-buffered, semicolon-terminated command
// protocol against a shared *index.Index. One handler instance serves
// every connection: the index's own transaction scopes make that safe,
// the same way the teacher's single ConnectionHandler shared one
// *index.RTree across connections.
type ConnectionHandler struct {
	Tree *index.Index
}

// ServeTELNET implements telnet.Handler.
func (h *ConnectionHandler) ServeTELNET(ctx telnet.Context, w telnet.Writer, r telnet.Reader) {
	skipRunes := map[rune]bool{'\n': true, '\r': true, ';': true}

	var buffer [1]byte
	p := buffer[:]

	// Append buffer to a command until ';' met.
	command := []rune{}
	for {
		n, err := r.Read(p)

		var c rune
		if n > 0 {
			// Buffer is of length 1, ignore the size.
			c, _ = utf8.DecodeRune(p[:n])
			if _, contains := skipRunes[c]; !contains {
				command = append(command, c)
			}
		}
		if delim, _ := utf8.DecodeRuneInString(";"); delim == c {
			oi.LongWriteString(w, h.processCommand(string(command))+"\n")
			command = []rune{}
		}
		if nil != err || c == utf8.RuneError {
			oi.LongWriteString(w, "Closing...\n")
			break
		}
	}
}

func (h *ConnectionHandler) processCommand(command string) string {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "Unrecognized command: (empty)"
	}
	switch parts[0] {
	case "add":
		return h.handleAdd(parts[1:])
	case "search":
		return h.handleSearch(parts[1:])
	case "remove":
		return h.handleRemove(parts[1:])
	case "clear":
		return h.handleClear()
	case "count":
		return h.handleCount()
	}
	return fmt.Sprintf("Unrecognized command: %s", command)
}

func (h *ConnectionHandler) handleAdd(args []string) string {
	if len(args) != 4 {
		return "usage: add <minX> <minY> <maxX> <maxY>"
	}
	bounds, err := parseFloats(args)
	if err != nil {
		return err.Error()
	}
	env := model.NewEnvelope(bounds[0], bounds[1], bounds[2], bounds[3])

	id, err := h.Tree.AddGeometry(env)
	if err != nil {
		log.Errorln("add failed:", err)
		return err.Error()
	}
	return fmt.Sprintf("Inserted %d at %+v", id, env)
}

func (h *ConnectionHandler) handleSearch(args []string) string {
	if len(args) != 4 {
		return "usage: search <minX> <minY> <maxX> <maxY>"
	}
	bounds, err := parseFloats(args)
	if err != nil {
		return err.Error()
	}
	query := model.NewEnvelope(bounds[0], bounds[1], bounds[2], bounds[3])

	it, err := h.Tree.SearchIndex(index.EnvelopeOverlapFilter{Query: query})
	if err != nil {
		log.Errorln("search failed:", err)
		return err.Error()
	}
	defer it.Close()

	var buf bytes.Buffer
	count := 0
	for {
		id, ok := it.Next()
		if !ok {
			break
		}
		fmt.Fprintf(&buf, "\n\t%d", id)
		count++
	}
	if err := it.Err(); err != nil {
		log.Errorln("search failed:", err)
		return err.Error()
	}
	return fmt.Sprintf("Found %d geometries:%s", count, buf.String())
}

func (h *ConnectionHandler) handleRemove(args []string) string {
	if len(args) != 1 {
		return "usage: remove <id>"
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err.Error()
	}
	if err := h.Tree.RemoveStrict(model.GeomID(id), true, false); err != nil {
		log.Errorln("remove failed:", err)
		return err.Error()
	}
	return fmt.Sprintf("Removed %d", id)
}

func (h *ConnectionHandler) handleClear() string {
	if err := h.Tree.Clear(index.NoopProgress); err != nil {
		log.Errorln("clear failed:", err)
		return err.Error()
	}
	return "Cleared"
}

func (h *ConnectionHandler) handleCount() string {
	n, err := h.Tree.Count()
	if err != nil {
		log.Errorln("count failed:", err)
		return err.Error()
	}
	return fmt.Sprintf("%d", n)
}

func parseFloats(args []string) ([4]float64, error) {
	var out [4]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
