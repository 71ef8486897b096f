// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/thediveo/xproc"
)

// MinWidth is the minimum width of any column.
const MinWidth = 12

var headerStyle = lipgloss.NewStyle().Bold(true)

// Columns prints rows of attributes as right-aligned columns, separated by a
// single space. Column widths are tracked per attribute name and only ever
// grow, so that subsequent rows stay aligned with earlier headers as long as
// values don't get wider.
type Columns struct {
	w      io.Writer
	widths map[string]int
	styled bool
}

// NewColumns returns a new column printer writing to w.
func NewColumns(w io.Writer) *Columns {
	return &Columns{
		w:      w,
		widths: map[string]int{},
		styled: terminalWidth(w) > 0,
	}
}

// Fit widens the columns as necessary to fit the names and values of the
// passed attributes.
func (c *Columns) Fit(attrs []xproc.Attr) {
	for _, attr := range attrs {
		width := max(len(attr.Name), len(attr.String()), MinWidth)
		if width > c.widths[attr.Name] {
			c.widths[attr.Name] = width
		}
	}
}

// Width returns the current width of the named column, or 0 if unknown.
func (c *Columns) Width(name string) int { return c.widths[name] }

// Header prints the names of the passed attributes.
func (c *Columns) Header(attrs []xproc.Attr) error {
	c.Fit(attrs)
	cells := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		cells = append(cells, pad(attr.Name, c.widths[attr.Name]))
	}
	line := strings.Join(cells, " ")
	if c.styled {
		line = headerStyle.Render(line)
	}
	_, err := fmt.Fprintln(c.w, line)
	return err
}

// Row prints the values of the passed attributes.
func (c *Columns) Row(attrs []xproc.Attr) error {
	c.Fit(attrs)
	cells := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		cells = append(cells, pad(attr.String(), c.widths[attr.Name]))
	}
	_, err := fmt.Fprintln(c.w, strings.Join(cells, " "))
	return err
}

// Table prints a header followed by a row for each of the attribute lists,
// with the column widths fitted to all rows beforehand.
func (c *Columns) Table(rows [][]xproc.Attr) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		c.Fit(row)
	}
	if err := c.Header(rows[0]); err != nil {
		return err
	}
	for _, row := range rows {
		if err := c.Row(row); err != nil {
			return err
		}
	}
	return nil
}

// pad right-aligns s within width.
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// terminalWidth returns the width of the terminal w writes to, or 0 if w
// isn't a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}
