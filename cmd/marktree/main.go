// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// marktree parses CommonMark documents
// and writes them as HTML, as a node tree, or as reformatted Markdown.
//
// Usage:
//
//	marktree [command] [file]
//
// Available Commands:
//
//	html        Render Markdown as HTML
//	tree        Print the parsed node tree
//	fmt         Reformat Markdown
//
// If no file is given, input is read from standard input.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"zombiezen.com/go/marktree"
	"zombiezen.com/go/marktree/ext/frontmatter"
	"zombiezen.com/go/marktree/ext/strikethrough"
	"zombiezen.com/go/marktree/format"
	"zombiezen.com/go/marktree/htmlrender"
)

var log = commonlog.GetLogger("marktree")

type globalOptions struct {
	verbosity     int
	strikethrough bool
	frontMatter   bool
}

func main() {
	g := new(globalOptions)
	rootCmd := &cobra.Command{
		Use:           "marktree",
		Short:         "Parse CommonMark documents",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commonlog.Configure(g.verbosity, nil)
		},
	}
	rootCmd.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", "increase logging verbosity")
	rootCmd.PersistentFlags().BoolVar(&g.strikethrough, "strikethrough", false, "recognize ~~strikethrough~~")
	rootCmd.PersistentFlags().BoolVar(&g.frontMatter, "front-matter", false, "recognize YAML front matter")

	rootCmd.AddCommand(
		newHTMLCommand(g),
		newTreeCommand(g),
		newFmtCommand(g),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "marktree:", err)
		os.Exit(1)
	}
}

func newHTMLCommand(g *globalOptions) *cobra.Command {
	r := new(htmlrender.Renderer)
	var softBreak string
	var gfmFilter bool
	c := &cobra.Command{
		Use:                   "html [options] [file]",
		Short:                 "Render Markdown as HTML",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch softBreak {
			case "preserve":
				r.SoftBreakBehavior = htmlrender.SoftBreakPreserve
			case "harden":
				r.SoftBreakBehavior = htmlrender.SoftBreakHarden
			case "space":
				r.SoftBreakBehavior = htmlrender.SoftBreakSpace
			default:
				return fmt.Errorf("unknown --soft-break %q", softBreak)
			}
			if gfmFilter {
				r.FilterTag = htmlrender.FilterTagGFM
			}
			doc, err := g.parse(args)
			if err != nil {
				return err
			}
			log.Debugf("rendering HTML with soft breaks %v", r.SoftBreakBehavior)
			return r.Render(cmd.OutOrStdout(), doc)
		},
	}
	c.Flags().StringVar(&softBreak, "soft-break", "preserve", "how to render soft line breaks (preserve, harden, or space)")
	c.Flags().BoolVar(&r.IgnoreRaw, "ignore-raw", false, "omit raw HTML from the output")
	c.Flags().BoolVar(&gfmFilter, "gfm-filter", false, "escape the tags disallowed by GitHub Flavored Markdown")
	return c
}

func newTreeCommand(g *globalOptions) *cobra.Command {
	var showSpans bool
	c := &cobra.Command{
		Use:                   "tree [options] [file]",
		Short:                 "Print the parsed node tree",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := g.parse(args)
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), doc, showSpans)
		},
	}
	c.Flags().BoolVar(&showSpans, "spans", false, "print source positions")
	return c
}

func newFmtCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "fmt [options] [file]",
		Short:                 "Reformat Markdown",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := g.parse(args)
			if err != nil {
				return err
			}
			return format.Format(cmd.OutOrStdout(), doc)
		},
	}
}

// parse reads the file named by args (or standard input)
// and parses it with the extensions selected by the global flags.
func (g *globalOptions) parse(args []string) (*marktree.Document, error) {
	name := "<stdin>"
	var source []byte
	var err error
	if len(args) == 0 {
		source, err = io.ReadAll(os.Stdin)
	} else {
		name = args[0]
		source, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}

	opts := new(marktree.Options)
	if g.strikethrough {
		strikethrough.Extend(opts)
	}
	if g.frontMatter {
		frontmatter.Extend(opts)
	}
	p, err := marktree.NewParser(opts)
	if err != nil {
		return nil, err
	}
	doc := p.Parse(source)
	log.Infof("parsed %s: %d bytes, %d top-level blocks", name, len(source), doc.Root().ChildCount())
	if m := frontmatter.Get(doc); m != nil && m.Err != nil {
		log.Warningf("%s: %v", name, m.Err)
	}
	return doc, nil
}

func printTree(w io.Writer, doc *marktree.Document, showSpans bool) error {
	sb := new(strings.Builder)
	depth := 0
	marktree.Inspect(doc.Root(), func(n marktree.Node, entering bool) bool {
		if !entering {
			depth--
			return true
		}
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(n.Kind().String())
		describeNode(sb, n)
		if showSpans {
			for _, span := range n.Spans() {
				sb.WriteString(" ")
				sb.WriteString(span.String())
			}
		}
		sb.WriteString("\n")
		depth++
		return true
	})
	_, err := io.WriteString(w, sb.String())
	return err
}

func describeNode(sb *strings.Builder, n marktree.Node) {
	switch n.Kind() {
	case marktree.HeadingKind:
		fmt.Fprintf(sb, " level=%d", n.HeadingLevel())
		if n.IsSetextHeading() {
			sb.WriteString(" setext")
		}
	case marktree.ListKind:
		if n.IsOrderedList() {
			fmt.Fprintf(sb, " ordered start=%d delim=%q", n.ListStart(), n.ListDelimiter())
		} else {
			fmt.Fprintf(sb, " bullet=%q", n.ListBulletChar())
		}
		if n.IsTightList() {
			sb.WriteString(" tight")
		}
	case marktree.FencedCodeBlockKind:
		fmt.Fprintf(sb, " info=%q", n.Info())
		fmt.Fprintf(sb, " %q", n.Literal())
	case marktree.IndentedCodeBlockKind, marktree.HTMLBlockKind,
		marktree.TextKind, marktree.CodeSpanKind, marktree.RawHTMLKind:
		fmt.Fprintf(sb, " %q", n.Literal())
	case marktree.LinkKind, marktree.ImageKind, marktree.LinkReferenceDefinitionKind:
		if label := n.Label(); label != "" {
			fmt.Fprintf(sb, " label=%q", label)
		}
		fmt.Fprintf(sb, " destination=%q", n.Destination())
		if n.TitlePresent() {
			fmt.Fprintf(sb, " title=%q", n.Title())
		}
		if n.IsAutolink() {
			sb.WriteString(" autolink")
		}
	case marktree.CustomBlockKind, marktree.CustomInlineKind:
		fmt.Fprintf(sb, " %T", n.Data())
	}
}
