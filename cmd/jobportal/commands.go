package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kalambet/jobportal/internal/api"
	"github.com/kalambet/jobportal/internal/auth"
	"github.com/kalambet/jobportal/internal/catalog"
	"github.com/kalambet/jobportal/internal/chat"
	"github.com/kalambet/jobportal/internal/config"
	"github.com/kalambet/jobportal/internal/delay"
	"github.com/kalambet/jobportal/internal/filter"
	"github.com/kalambet/jobportal/internal/form"
	"github.com/kalambet/jobportal/internal/responder"
	"github.com/kalambet/jobportal/internal/resume"
	"github.com/kalambet/jobportal/internal/storage"
)

const formPollInterval = 200 * time.Millisecond

// --- search / counts ---

var searchCmd = &cobra.Command{
	Use:   "search <view> [query...]",
	Short: "Search a listing view on the running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, _ := cmd.Flags().GetStringArray("filter")
		mins, _ := cmd.Flags().GetStringArray("min")
		maxs, _ := cmd.Flags().GetStringArray("max")
		sortField, _ := cmd.Flags().GetString("sort")
		desc, _ := cmd.Flags().GetBool("desc")
		limit, _ := cmd.Flags().GetInt("limit")

		path, err := searchPath(args[0], strings.Join(args[1:], " "), filters, mins, maxs, sortField, desc)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var res catalog.Result
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		v, _ := catalog.LookupView(args[0])
		renderResult(cmd.OutOrStdout(), v, res, limit)
		return nil
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts <view> [field]",
	Short: "Count a view's records per value of a field",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/v1/views/" + url.PathEscape(args[0]) + "/counts"
		if len(args) == 2 {
			path += "?" + url.Values{"field": {args[1]}}.Encode()
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var counts map[string]int
		if err := decodeJSON(resp, &counts); err != nil {
			return err
		}
		renderCounts(cmd.OutOrStdout(), counts)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringArray("filter", nil, "exact field filter as field=value (repeatable)")
	searchCmd.Flags().StringArray("min", nil, "lower bound as field=number (repeatable)")
	searchCmd.Flags().StringArray("max", nil, "upper bound as field=number (repeatable)")
	searchCmd.Flags().String("sort", "", "field to sort by")
	searchCmd.Flags().Bool("desc", false, "sort descending")
	searchCmd.Flags().Int("limit", 0, "show at most this many records (0 for all)")
}

func searchPath(view, query string, filters, mins, maxs []string, sortField string, desc bool) (string, error) {
	q, err := api.CriteriaValues(query, filters, mins, maxs, sortField, desc)
	if err != nil {
		return "", err
	}
	path := "/v1/views/" + url.PathEscape(view)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return path, nil
}

func renderResult(w io.Writer, v catalog.View, res catalog.Result, limit int) {
	items := res.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	fmt.Fprintln(w, colorize(colorBold, fmt.Sprintf("%d of %s %s", len(items), humanize.Comma(int64(res.Total)), v.Name)))
	for _, rec := range items {
		fmt.Fprintf(w, "  %s  %s\n", colorize(colorCyan, fmt.Sprint(rec["id"])), recordTitle(v, rec))
		if details := recordDetails(v, rec); details != "" {
			fmt.Fprintf(w, "      %s\n", colorize(colorDim, details))
		}
	}
	if len(res.Counts) > 0 {
		fmt.Fprintln(w)
		renderCounts(w, res.Counts)
	}
}

func recordTitle(v catalog.View, rec filter.Record) string {
	for _, f := range v.SearchFields {
		if s, ok := rec[f].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func recordDetails(v catalog.View, rec filter.Record) string {
	var parts []string
	fields := slices.Concat(v.FilterFields, v.ContainsFields, v.RangeFields)
	for _, f := range fields {
		val, ok := rec[f]
		if !ok || val == nil {
			continue
		}
		parts = append(parts, f+": "+formatValue(val))
	}
	return strings.Join(parts, " · ")
}

func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return humanize.Comma(int64(n))
		}
		return humanize.FormatFloat("#,###.##", n)
	case int:
		return humanize.Comma(int64(n))
	case int64:
		return humanize.Comma(n)
	case []any:
		s := make([]string, len(n))
		for i, e := range n {
			s[i] = formatValue(e)
		}
		return strings.Join(s, ", ")
	}
	return fmt.Sprint(v)
}

func renderCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %s\n", k, humanize.Comma(int64(counts[k])))
	}
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the career assistant in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("persona")
		p, err := responder.ParsePersona(name)
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		s := chat.NewSession(p, responder.New(nil), delay.Timer{}, cfg.Chat.ReplyDelay, nil)
		s.Open()
		defer s.Close()
		return runChat(cmd.Context(), s, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().String("persona", string(responder.JobSeeker), "assistant persona: jobseeker or company")
}

// runChat reads lines from in until EOF or /quit, printing each assistant
// reply once it arrives.
func runChat(ctx context.Context, s *chat.Session, in io.Reader, out io.Writer) error {
	seen := 0
	flush := func() {
		msgs := s.Messages()
		for _, m := range msgs[seen:] {
			if m.Sender == chat.SenderBot {
				fmt.Fprintf(out, "%s %s\n", colorize(colorCyan, "assistant>"), m.Text)
			}
		}
		seen = len(msgs)
	}
	flush()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if _, err := s.Send(line); err != nil {
			if errors.Is(err, chat.ErrEmptyMessage) {
				continue
			}
			return err
		}
		seen = len(s.Messages())
		for s.Typing() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
		flush()
	}
}

// --- forms over the API ---

type submitResponse struct {
	Outcome string      `json:"outcome"`
	Form    form.Status `json:"form"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Field   string `json:"field"`
	} `json:"error"`
}

func openForm(ctx context.Context, c *apiClient, name string, fields map[string]any) (form.Status, error) {
	var st form.Status
	resp, err := c.post(ctx, "/v1/forms", map[string]any{"form": name, "fields": fields})
	if err != nil {
		return st, err
	}
	err = decodeJSON(resp, &st)
	return st, err
}

// submitForm submits a form and waits for its delayed completion.
func submitForm(ctx context.Context, c *apiClient, id string) (form.Status, error) {
	resp, err := c.post(ctx, "/v1/forms/"+id+"/submit", nil)
	if err != nil {
		return form.Status{}, err
	}
	var sr submitResponse
	if resp.StatusCode == http.StatusUnprocessableEntity {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return form.Status{}, err
		}
		msg := "submission rejected"
		if sr.Error != nil {
			msg = sr.Error.Message
			if sr.Error.Field != "" {
				msg = fmt.Sprintf("%s (%s)", msg, sr.Error.Field)
			}
		}
		return form.Status{}, errors.New(msg)
	}
	if err := decodeJSON(resp, &sr); err != nil {
		return form.Status{}, err
	}
	if sr.Outcome != form.OutcomeScheduled.String() {
		return form.Status{}, fmt.Errorf("submission %s", sr.Outcome)
	}
	return waitForm(ctx, c, id)
}

func waitForm(ctx context.Context, c *apiClient, id string) (form.Status, error) {
	ticker := time.NewTicker(formPollInterval)
	defer ticker.Stop()
	for {
		resp, err := c.get(ctx, "/v1/forms/"+id)
		if err != nil {
			return form.Status{}, err
		}
		var st form.Status
		if err := decodeJSON(resp, &st); err != nil {
			return st, err
		}
		if !st.Submitting {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func closeForm(ctx context.Context, c *apiClient, id string) {
	if resp, err := c.delete(ctx, "/v1/forms/"+id); err == nil {
		resp.Body.Close()
	}
}

func reportResult(w io.Writer, st form.Status) error {
	if st.Result != nil {
		printNotification(w, st.Result.Notification)
	}
	if st.Error != nil {
		return errors.New(st.Error.Message)
	}
	if st.Result == nil {
		return errors.New("form finished without a result")
	}
	return nil
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply for a job with a resume file",
	RunE: func(cmd *cobra.Command, args []string) error {
		resumePath, _ := cmd.Flags().GetString("resume")
		job, _ := cmd.Flags().GetString("job")
		company, _ := cmd.Flags().GetString("company")
		cover, _ := cmd.Flags().GetString("cover")

		data, err := os.ReadFile(resumePath)
		if err != nil {
			return fmt.Errorf("reading resume: %w", err)
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openForm(ctx, client, string(form.Apply), map[string]any{
			"jobTitle": job, "companyName": company, "coverLetter": cover,
		})
		if err != nil {
			return err
		}
		defer closeForm(context.Background(), client, st.ID)

		resp, err := client.upload(ctx, "/v1/forms/"+st.ID+"/attachment", "resume", resumePath, data)
		if err != nil {
			return err
		}
		var info resume.Info
		if err := decodeJSON(resp, &info); err != nil {
			return err
		}
		printStep("Attached %s", info.Human())

		printStep("Submitting application...")
		done, err := submitForm(ctx, client, st.ID)
		if err != nil {
			return err
		}
		return reportResult(cmd.OutOrStdout(), done)
	},
}

func init() {
	applyCmd.Flags().String("resume", "", "resume file (PDF, DOC or DOCX)")
	applyCmd.Flags().String("job", "", "job title")
	applyCmd.Flags().String("company", "", "company name")
	applyCmd.Flags().String("cover", "", "cover letter")
	_ = applyCmd.MarkFlagRequired("resume")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		name, fields, err := loginForm(role, email, password)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := openForm(ctx, client, name, fields)
		if err != nil {
			return err
		}
		defer closeForm(context.Background(), client, st.ID)

		done, err := submitForm(ctx, client, st.ID)
		if err != nil {
			return err
		}
		if err := reportResult(cmd.OutOrStdout(), done); err != nil {
			return err
		}
		if done.Result.Token == "" {
			return errors.New("no session token issued")
		}
		fmt.Fprintln(cmd.OutOrStdout(), done.Result.Token)
		printStatus("Use it with", "--token or export JOBPORTAL_TOKEN=%s", done.Result.Token)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("role", string(auth.RoleJobSeeker), "account role: jobseeker, company, admin or sales")
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
}

func loginForm(role, email, password string) (string, map[string]any, error) {
	fields := map[string]any{"email": email, "password": password}
	switch auth.Role(strings.ToLower(role)) {
	case auth.RoleAdmin:
		return string(form.AdminLogin), fields, nil
	case auth.RoleSales:
		return string(form.SalesLogin), fields, nil
	case auth.RoleJobSeeker, auth.RoleCompany:
		fields["userType"] = strings.ToLower(role)
		return string(form.Login), fields, nil
	}
	return "", nil, fmt.Errorf("unknown role %q", role)
}

// --- operators ---

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "Manage admin and sales accounts",
}

var operatorsProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Store the configured admin and sales credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Storage.Driver == "sqlite" && cfg.Storage.DataDir == ":memory:" {
			printWarning("storage is in memory; accounts will be lost on exit (set storage.data_dir or use serve --persist)")
		}
		backend, err := storage.OpenBackend(cmd.Context(), cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer backend.Close()

		n, err := auth.Provision(cmd.Context(), backend, operatorAccounts(cfg))
		if err != nil {
			return err
		}
		if n == 0 {
			printWarning("no operator credentials configured (see `jobportal config set-secret`)")
			return nil
		}
		printSuccess("Provisioned %d operator account(s)", n)
		return nil
	},
}

func init() {
	operatorsCmd.AddCommand(operatorsProvisionCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every configuration key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			value := k.Value
			if k.Secret && value != "" {
				value = "********"
			}
			fmt.Fprintf(w, "%-24s %-32s %s\n", k.Key, value, colorize(colorDim, k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			printStatus("Valid keys", "%s", strings.Join(config.ValidKeys(), ", "))
			return err
		}
		printSuccess("%s = %s", args[0], args[1])
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key>",
	Short: "Store a secret key, reading the value from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "value for %s: ", args[0])
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errors.New("no value given")
		}
		if err := config.SetSecret(args[0], strings.TrimSpace(scanner.Text())); err != nil {
			return err
		}
		printSuccess("%s stored", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configSetSecretCmd)
}
