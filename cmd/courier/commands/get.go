package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulfikawr/courier/internal/config"
	"github.com/zulfikawr/courier/internal/errors"
	"github.com/zulfikawr/courier/internal/feed"
	"github.com/zulfikawr/courier/internal/logging"
	"github.com/zulfikawr/courier/internal/ui"
	"github.com/zulfikawr/courier/pkg/download"
	"github.com/zulfikawr/courier/pkg/transport"
	"go.uber.org/zap"
)

// getFlags holds the flags of one get invocation
type getFlags struct {
	output       string
	remoteName   bool
	force        bool
	outputDir    string
	jsonMode     bool
	query        string
	method       string
	headers      []string
	data         string
	params       []string
	user         string
	noPreemptive bool
	timeout      time.Duration
	noCookies    bool
	limitRate    string
	proxy        string
	insecure     bool
	http3        bool
	activityAddr string
	quiet        bool
	failOnStatus bool
	tag          string
	group        string
}

var getOpts getFlags

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Download a URL to stdout, a file, or as JSON",
	Long: `Download a URL. The body goes to stdout unless --output is given.
With --json the body is decoded and pretty printed, or reduced with --query.

SIGINT cancels the transfer. SIGTERM stops it when continue_in_background
is disabled in the configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, getOpts, args[0])
	},
}

func init() {
	f := getCmd.Flags()
	f.StringVarP(&getOpts.output, "output", "o", "", "Write the body to a file")
	f.BoolVarP(&getOpts.remoteName, "remote-name", "O", false, "Write the body to a file named after the URL path")
	f.StringVar(&getOpts.outputDir, "output-dir", "", "Directory for --remote-name files")
	f.BoolVar(&getOpts.force, "force", false, "Overwrite an existing --output file")
	f.BoolVar(&getOpts.jsonMode, "json", false, "Decode the body as JSON and pretty print it")
	f.StringVar(&getOpts.query, "query", "", "Print only this path of the JSON body (e.g. items.0.name)")
	f.StringVarP(&getOpts.method, "method", "X", "", "HTTP method (default GET, POST with --data)")
	f.StringArrayVarP(&getOpts.headers, "header", "H", nil, "Request header \"Name: value\" (repeatable)")
	f.StringVarP(&getOpts.data, "data", "d", "", "Request body")
	f.StringArrayVarP(&getOpts.params, "param", "F", nil, "Parameter key=value, in the query for GET or as a form otherwise (repeatable)")
	f.StringVarP(&getOpts.user, "user", "u", "", "Basic auth credentials user:password")
	f.BoolVar(&getOpts.noPreemptive, "auth-on-challenge", false, "Send credentials only after a 401 challenge")
	f.DurationVar(&getOpts.timeout, "timeout", 0, "Idle timeout (default from config, 60s)")
	f.BoolVar(&getOpts.noCookies, "no-cookies", false, "Do not send or store cookies")
	f.StringVar(&getOpts.limitRate, "limit-rate", "", "Bandwidth limit (e.g. 500K, 2M) (env: COURIER_RATE_LIMIT_KBPS)")
	f.StringVar(&getOpts.proxy, "proxy", "", "HTTP or SOCKS5 proxy URL (env: COURIER_PROXY_URL)")
	f.BoolVarP(&getOpts.insecure, "insecure", "k", false, "Trust any server certificate")
	f.BoolVar(&getOpts.http3, "http3", false, "Use HTTP/3 over QUIC")
	f.StringVar(&getOpts.activityAddr, "activity-addr", "", "Serve the activity feed and metrics on this address")
	f.BoolVarP(&getOpts.quiet, "quiet", "q", false, "Suppress progress and summary output")
	f.BoolVarP(&getOpts.failOnStatus, "fail", "f", false, "Exit with an error on HTTP status 400 and above")
	f.StringVar(&getOpts.tag, "tag", "", "Session tag shown in the activity feed")
	f.StringVar(&getOpts.group, "group", "", "Session group shown in the activity feed")
}

// transportOptions merges config and flags
func transportOptions(c *config.Config, g getFlags) (transport.Options, error) {
	opts := transport.Options{
		UserAgent:            c.UserAgent,
		ProxyURL:             c.ProxyURL,
		RateLimitKBps:        c.RateLimitKBps,
		HTTP3:                c.HTTP3 || g.http3,
		TrustAllCertificates: c.TrustAllCertificates || g.insecure,
		Logger:               logging.GetLogger(),
	}
	if g.proxy != "" {
		opts.ProxyURL = g.proxy
	}
	if g.limitRate != "" {
		kbps, err := parseRateLimit(g.limitRate)
		if err != nil {
			return opts, err
		}
		opts.RateLimitKBps = kbps
	}
	return opts, nil
}

func runGet(ctx context.Context, stdout, stderr io.Writer, c *config.Config, g getFlags, rawURL string) error {
	if c == nil {
		c = config.DefaultConfig()
	}
	if g.data != "" && len(g.params) > 0 {
		return fmt.Errorf("--data and --param cannot be combined")
	}
	params, err := parseParams(g.params)
	if err != nil {
		return err
	}
	if g.remoteName && g.output == "" {
		g.output = uniquePath(g.outputDir, remoteFilename(rawURL))
	} else if g.output != "" && !g.force {
		if _, err := os.Stat(g.output); err == nil {
			return errors.FileExistsError(g.output)
		}
	}

	opts, err := transportOptions(c, g)
	if err != nil {
		return err
	}
	tr, err := transport.NewHTTP(opts)
	if err != nil {
		return errors.ConnectionError(rawURL, err)
	}
	defer tr.Close()

	timeout := c.Timeout()
	if g.timeout > 0 {
		timeout = g.timeout
	}
	task := download.NewBackgroundTask()
	m, err := download.NewManager(
		download.WithTransport(tr),
		download.WithExpiryNotifier(task),
		download.WithLogger(logging.GetLogger()),
		download.WithDefaults(download.Defaults{
			Timeout:              timeout,
			DisableCookies:       c.DisableCookies || g.noCookies,
			ContinueInBackground: c.ContinueInBackground,
		}),
	)
	if err != nil {
		return err
	}
	for name, value := range c.GlobalHeaders {
		m.Headers().Set(name, value)
	}
	for _, cred := range c.Credentials {
		if cred.Host == "" {
			m.Credentials().Set(cred.Username, cred.Password)
		} else {
			m.Credentials().SetForHost(cred.Host, cred.Username, cred.Password)
		}
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	addr := c.ActivityAddr
	if g.activityAddr != "" {
		addr = g.activityAddr
	}
	if addr != "" {
		srv := feed.New(m, logging.GetLogger())
		go func() {
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				logging.Warn("Activity feed stopped", zap.String("addr", addr), zap.Error(err))
			}
		}()
	}

	s, err := newGetSession(m, g)
	if err != nil {
		return err
	}

	bar := ui.NewProgressBar(stderr, "", g.quiet)
	s.SetProgressFunc(func(_ *download.Session, p download.Progress) {
		bar.Update(p.Received, p.Expected)
	})

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case sig := <-sigCh:
				logging.Info("Received signal", zap.String("signal", sig.String()))
				if sig == syscall.SIGTERM {
					task.Expire()
				} else {
					s.Cancel()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if g.data != "" {
		err = s.StartWithBody(rawURL, []byte(g.data))
	} else {
		err = s.StartWithParams(rawURL, params)
	}
	if err != nil {
		return errors.FromDownload(rawURL, err)
	}

	res, err := s.Wait(ctx)
	summary := bar.Finish()
	if res == nil {
		return err
	}
	switch res.State {
	case download.StateCancelled:
		return fmt.Errorf("download of %s cancelled", rawURL)
	case download.StateFailed:
		return errors.FromDownload(rawURL, err)
	}

	if err := writeResult(stdout, s, res, g); err != nil {
		return err
	}

	status := 0
	if res.Response != nil {
		status = res.Response.StatusCode
		summary.Status = res.Response.Status
	}
	if !g.quiet && g.output != "" {
		summary.URL = rawURL
		summary.Destination = g.output
		ui.PrintSummary(stderr, summary)
	} else if !g.quiet && status != 0 {
		fmt.Fprintln(stderr, ui.Colors.Paint(ui.Colors.StatusColor(status), res.Response.Proto+" "+res.Response.Status))
	}

	if g.failOnStatus && status >= 400 {
		return fmt.Errorf("server returned %s", res.Response.Status)
	}
	return nil
}

// newGetSession creates the session matching the output flags and applies
// the request flags to it
func newGetSession(m *download.Manager, g getFlags) (*download.Session, error) {
	var s *download.Session
	switch {
	case g.output != "":
		s = m.NewFileSession(g.output, nil, nil)
	case g.jsonMode || g.query != "":
		s = m.NewJSONSession(nil, nil)
	default:
		s = m.NewMemorySession(nil, nil)
	}

	for _, raw := range g.headers {
		name, value, err := parseHeader(raw)
		if err != nil {
			return nil, err
		}
		s.SetHeader(name, value)
	}
	if g.method != "" {
		s.SetMethod(g.method)
	} else if g.data != "" {
		s.SetMethod("POST")
	}
	if g.user != "" {
		user, password := parseUser(g.user)
		s.SetCredentials(user, password)
		s.SetPreemptiveAuth(!g.noPreemptive)
	}
	if g.tag != "" {
		s.SetTag(g.tag)
	}
	if g.group != "" {
		s.SetGroup(g.group)
	}
	return s, nil
}

// writeResult prints the body of a completed memory or JSON session
func writeResult(w io.Writer, s *download.Session, res *download.Result, g getFlags) error {
	switch {
	case g.output != "":
		return nil
	case g.query != "":
		r := s.JSONPath(g.query)
		if !r.Exists() {
			return fmt.Errorf("path %q not found in response", g.query)
		}
		_, err := fmt.Fprintln(w, r.String())
		return err
	case g.jsonMode:
		out, err := json.MarshalIndent(res.Value, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	default:
		_, err := w.Write(res.Data)
		return err
	}
}
