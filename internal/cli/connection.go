package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/wordpress"
)

func init() {
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check the WordPress connection and credentials",
		Long: "Ping the site, authenticate, list categories and the roles they map to, " +
			"and make sure a tag can be found or created.",
		Run: runTestConnection,
	}

	cmd.Flags().String("tag", "airth-connection-test", "Tag used for the round trip (empty to skip)")

	RootCmd.AddCommand(cmd)
}

type connectionReport struct {
	Site        string         `json:"site"`
	APIBase     string         `json:"api_base"`
	User        string         `json:"user,omitempty"`
	CanPublish  bool           `json:"can_publish"`
	Categories  []string       `json:"categories"`
	Roles       map[string]int `json:"roles"`
	MissingRole []string       `json:"missing_roles,omitempty"`
	TagID       int            `json:"tag_id,omitempty"`
	Elapsed     string         `json:"elapsed"`
}

func runTestConnection(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	start := time.Now()

	wp, err := newWordPress()
	if err != nil {
		exitErr("wordpress", err)
	}
	ctx := cmd.Context()

	info, err := wp.Ping(ctx)
	if err != nil {
		exitErr("ping", err)
	}
	logger.Info("connected", "site", info.Name)

	report := connectionReport{Site: info.Name, APIBase: wp.APIBase()}

	me, err := wp.Me(ctx)
	if err != nil {
		if wordpress.IsAuthError(err) {
			exitErr("authenticate", fmt.Errorf("%w (check WP_USER and the application password)", err))
		}
		exitErr("authenticate", err)
	}
	report.User = me.Name
	report.CanPublish = me.CanPublish()

	cats, err := wp.Categories(ctx)
	if err != nil {
		exitErr("categories", err)
	}
	for slug := range cats.BySlug {
		report.Categories = append(report.Categories, slug)
	}
	sort.Strings(report.Categories)
	report.Roles = cats.Roles
	for _, role := range []string{wordpress.RoleAirthsCodex, wordpress.RoleTechnologyAI, wordpress.RoleReviewsDeepDives, wordpress.RoleUncategorized} {
		if _, ok := cats.Roles[role]; !ok {
			report.MissingRole = append(report.MissingRole, role)
		}
	}

	if tag != "" {
		ids, err := wp.EnsureTags(ctx, []string{tag})
		if err != nil {
			exitErr("tags", err)
		}
		if len(ids) == 0 {
			exitErr("tags", fmt.Errorf("could not find or create tag %q", tag))
		}
		report.TagID = ids[0]
	}

	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	printJSON(report)
}
