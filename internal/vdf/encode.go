package vdf

import (
	"bytes"
	"io"
	"strings"
)

const (
	quote     = `"`
	separator = "\t\t"
	newline   = "\n"
)

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
)

// Marshal renders a document with one tab of indentation per depth, one
// entry per line and braces on their own lines. A Node with a non-empty Key
// is rendered as a single top-level block.
func Marshal(n *Node) []byte {
	var buf bytes.Buffer
	if n.Key == "" {
		writeEntries(&buf, n.Children, 0)
	} else {
		writeEntry(&buf, KeyNode(n.Key, n), 0)
	}
	return buf.Bytes()
}

// Encode writes Marshal(n) to w.
func Encode(w io.Writer, n *Node) error {
	_, err := w.Write(Marshal(n))
	return err
}

func writeEntries(buf *bytes.Buffer, entries []Entry, depth int) {
	for _, e := range entries {
		writeEntry(buf, e, depth)
	}
}

func writeEntry(buf *bytes.Buffer, e Entry, depth int) {
	indent := strings.Repeat("\t", depth)
	buf.WriteString(indent)
	writeQuoted(buf, e.Key)
	if e.Node == nil {
		buf.WriteString(separator)
		writeQuoted(buf, e.Value)
		buf.WriteString(newline)
		return
	}
	buf.WriteString(newline)
	buf.WriteString(indent + "{" + newline)
	writeEntries(buf, e.Node.Children, depth+1)
	buf.WriteString(indent + "}" + newline)
}

func writeQuoted(buf *bytes.Buffer, s string) {
	buf.WriteString(quote)
	buf.WriteString(escaper.Replace(s))
	buf.WriteString(quote)
}
