package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/wippyai/glyphtext/errors"
	"github.com/wippyai/glyphtext/text"
)

var (
	indexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	glyphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	markerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

func newDecodeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [TEXT]",
		Short: "Decode units, bytes, a file or command-line text into scalars",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, v, args)
		},
	}

	fs := cmd.Flags()
	fs.String("units", "", "Comma separated 16-bit hex units, e.g. D800,DC00")
	fs.String("bytes", "", "Comma separated hex bytes decoded as Latin-1")
	fs.String("file", "", "Read input from a file")
	fs.String("encoding", encodingUTF16LE, "File encoding: utf16le, utf16be or latin1")
	fs.Bool("latin1", false, "Encode TEXT as Latin-1 bytes instead of 16-bit units")
	fs.Bool("no-pairs", false, "Keep surrogate units as separate scalars")
	return cmd
}

func runDecode(cmd *cobra.Command, v *viper.Viper, args []string) error {
	src, err := decodeSource(v, args)
	if err != nil {
		return err
	}

	ds, err := newNormalizer(v).Normalize(src, !v.GetBool("no-pairs"))
	if err != nil {
		writeErrorMarker(cmd.ErrOrStderr(), src, err)
		return err
	}

	out := cmd.OutOrStdout()
	styled := isTerminal(out)
	for i, r := range ds.Scalars() {
		fmt.Fprintln(out, formatScalar(i, r, styled))
	}
	return nil
}

// decodeSource picks the single input named by the flags or argument.
func decodeSource(v *viper.Viper, args []string) (text.Source, error) {
	var given []string
	if v.GetString("units") != "" {
		given = append(given, "--units")
	}
	if v.GetString("bytes") != "" {
		given = append(given, "--bytes")
	}
	if v.GetString("file") != "" {
		given = append(given, "--file")
	}
	if len(args) > 0 {
		given = append(given, "TEXT")
	}
	switch len(given) {
	case 0:
		return nil, fmt.Errorf("no input: pass TEXT, --units, --bytes or --file")
	case 1:
	default:
		return nil, fmt.Errorf("conflicting inputs: %s", strings.Join(given, ", "))
	}

	switch given[0] {
	case "--units":
		return parseHexUnits(v.GetString("units"))
	case "--bytes":
		return parseHexBytes(v.GetString("bytes"))
	case "--file":
		return readFileSource(v.GetString("file"), v.GetString("encoding"))
	}
	if v.GetBool("latin1") {
		return textToLatin1(args[0])
	}
	return textToUnits(args[0])
}

func formatScalar(i int, r rune, styled bool) string {
	idx := fmt.Sprintf("%4d", i)
	code := fmt.Sprintf("U+%06X", r)
	g := glyph(r)
	if styled {
		idx, code, g = indexStyle.Render(idx), codeStyle.Render(code), glyphStyle.Render(g)
	}
	return idx + "  " + code + "  " + g
}

// glyph renders r when it is printable, or a placeholder otherwise.
func glyph(r rune) string {
	if !utf8.ValidRune(r) || !unicode.IsPrint(r) {
		return "·"
	}
	return string(r)
}

// errorRange returns the unit range a decode error points at, or an empty
// range for errors that do not concern specific units.
func errorRange(err error) (start, end int) {
	var te *errors.Error
	if !stderrors.As(err, &te) {
		return 0, 0
	}
	switch te.Kind {
	case errors.KindUnsupportedInput, errors.KindOutOfMemory:
		return 0, 0
	}
	return te.Range()
}

// writeErrorMarker prints the input units with carets under the range the
// error points at. Errors without a range print nothing.
func writeErrorMarker(w io.Writer, src text.Source, err error) {
	start, end := errorRange(err)
	tokens := unitTokens(src)
	if end <= start || len(tokens) == 0 {
		return
	}
	line, marker := renderMarker(tokens, start, end)
	if isTerminal(w) {
		marker = markerStyle.Render(marker)
	}
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, marker)
}

func unitTokens(src text.Source) []string {
	var tokens []string
	switch s := src.(type) {
	case text.WideUnits:
		for _, u := range s {
			tokens = append(tokens, fmt.Sprintf("%04X", u))
		}
	case text.ByteUnits:
		for _, b := range s {
			tokens = append(tokens, fmt.Sprintf("%02X", b))
		}
	}
	return tokens
}

// renderMarker joins tokens with spaces and builds a caret line covering the
// tokens in [start, end).
func renderMarker(tokens []string, start, end int) (line, marker string) {
	var l, m strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			l.WriteByte(' ')
			m.WriteByte(' ')
		}
		l.WriteString(tok)
		ch := " "
		if i >= start && i < end {
			ch = "^"
		}
		m.WriteString(strings.Repeat(ch, len(tok)))
	}
	return l.String(), strings.TrimRight(m.String(), " ")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
