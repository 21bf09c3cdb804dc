package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/Adda-Baaj/dakiya/internal/app"
	"github.com/Adda-Baaj/dakiya/internal/extract"
	"github.com/Adda-Baaj/dakiya/pkg/httpclient"
	"github.com/Adda-Baaj/dakiya/pkg/httpresponse"
	"github.com/spf13/cobra"
)

type sessionFactory func(ctx context.Context) (*app.Session, error)

type requestFlags struct {
	data    []string
	rawData string
	headers []string
	options []string
	profile string
	sel     string
	meta    bool
	include bool
}

func newRootCmd(newSession sessionFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "dakiya",
		Short: "Send HTTP requests and inspect the parsed response",
		Long: `dakiya issues a single HTTP request, parses the raw response into a
status, ordered headers and body, and records the exchange.

Examples:
  dakiya get https://example.com/api -d page=2
  dakiya post https://example.com/items -d name=x -H "X-Trace: 1"
  dakiya request DELETE https://example.com/items/1 -o followlocation=false
  dakiya history --limit 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodHead} {
		root.AddCommand(newMethodCmd(method, newSession))
	}
	root.AddCommand(newRequestCmd(newSession))
	root.AddCommand(newHistoryCmd(newSession))
	return root
}

func newMethodCmd(method string, newSession sessionFactory) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <url>",
		Short: "Send a " + method + " request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, newSession, method, args[0], flags)
		},
	}
	bindRequestFlags(cmd, flags)
	return cmd
}

func newRequestCmd(newSession sessionFactory) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request <method> <url>",
		Short: "Send a request with an arbitrary method",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, newSession, args[0], args[1], flags)
		},
	}
	bindRequestFlags(cmd, flags)
	return cmd
}

func bindRequestFlags(cmd *cobra.Command, f *requestFlags) {
	cmd.Flags().StringArrayVarP(&f.data, "data", "d", nil, "form field as key=value (repeatable)")
	cmd.Flags().StringVar(&f.rawData, "data-raw", "", "pre-encoded payload sent as is")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, `request header as "Name: Value" (repeatable)`)
	cmd.Flags().StringArrayVarP(&f.options, "option", "o", nil, "transport option as name=value (repeatable)")
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "request profile id")
	cmd.Flags().StringVar(&f.sel, "select", "", `print text of nodes matching a CSS selector ("a@href" for attributes)`)
	cmd.Flags().BoolVar(&f.meta, "meta", false, "print page title, description and image as JSON")
	cmd.Flags().BoolVarP(&f.include, "include", "i", false, "print the status line and headers before the body")
	cmd.MarkFlagsMutuallyExclusive("data", "data-raw")
	cmd.MarkFlagsMutuallyExclusive("select", "meta")
}

func dispatch(cmd *cobra.Command, newSession sessionFactory, method, target string, f *requestFlags) error {
	call, err := f.call(method, target)
	if err != nil {
		return err
	}

	sess, err := newSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	resolved, err := sess.Target(call)
	if err != nil {
		return err
	}
	resp, err := sess.Do(cmd.Context(), call)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return render(cmd.OutOrStdout(), resp, resolved, f)
}

func (f *requestFlags) call(method, target string) (app.Call, error) {
	call := app.Call{
		Method:  method,
		URL:     target,
		Profile: strings.TrimSpace(f.profile),
	}

	switch {
	case f.rawData != "":
		call.Payload = httpclient.Raw(f.rawData)
	case len(f.data) > 0:
		form := httpclient.Form{}
		for _, kv := range f.data {
			k, v, err := splitPair(kv, "=")
			if err != nil {
				return app.Call{}, fmt.Errorf("--data: %w", err)
			}
			form[k] = appendFormValue(form[k], v)
		}
		call.Payload = form
	}

	if len(f.headers) > 0 {
		call.Headers = make(map[string]string, len(f.headers))
		for _, h := range f.headers {
			k, v, err := splitPair(h, ":")
			if err != nil {
				return app.Call{}, fmt.Errorf("--header: %w", err)
			}
			call.Headers[k] = v
		}
	}

	if len(f.options) > 0 {
		call.Options = make(map[string]string, len(f.options))
		for _, o := range f.options {
			k, v, err := splitPair(o, "=")
			if err != nil {
				return app.Call{}, fmt.Errorf("--option: %w", err)
			}
			call.Options[k] = v
		}
	}
	return call, nil
}

// appendFormValue turns repeated keys into a list so each value is sent.
func appendFormValue(existing any, v string) any {
	switch t := existing.(type) {
	case nil:
		return v
	case string:
		return []string{t, v}
	case []string:
		return append(t, v)
	default:
		return v
	}
}

func splitPair(s, sep string) (string, string, error) {
	k, v, ok := strings.Cut(s, sep)
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("expected name%svalue, got %q", sep, s)
	}
	return k, strings.TrimSpace(v), nil
}

func render(w io.Writer, resp *httpresponse.Response, target string, f *requestFlags) error {
	if f.include {
		writeHead(w, resp)
	}

	switch {
	case f.sel != "":
		matches, err := extract.Select(resp.Body, f.sel)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintln(w, m)
		}
	case f.meta:
		meta, err := extract.PageMeta(resp.Body, target)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	default:
		fmt.Fprint(w, resp.Body)
	}
	return nil
}

func writeHead(w io.Writer, resp *httpresponse.Response) {
	if resp.Headers == nil || resp.Headers.Len() == 0 {
		return
	}
	fmt.Fprintf(w, "HTTP/%s %s\n", resp.HTTPVersion(), resp.Status())
	for _, k := range resp.Headers.Keys() {
		switch k {
		case httpresponse.KeyHTTPVersion, httpresponse.KeyStatusCode, httpresponse.KeyStatus:
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", k, resp.Headers.Get(k))
	}
	fmt.Fprintln(w)
}

func newHistoryCmd(newSession sessionFactory) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			exchanges, err := sess.History(limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(exchanges) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recorded exchanges")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tMETHOD\tURL\tRESULT\tELAPSED")
			for _, ex := range exchanges {
				result := ex.Status
				if ex.Failed() {
					result = ex.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\n",
					ex.StartedAt.Local().Format("2006-01-02 15:04:05"), ex.Method, ex.URL, result, ex.ElapsedMs)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of exchanges to list (0 for all)")
	return cmd
}
