package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"codefix-admin/pkg/client"
)

func siteURL(cmd *cobra.Command) string {
	u, _ := cmd.Flags().GetString("url")
	if u == "" {
		u = os.Getenv("SITE_URL")
	}
	if u == "" {
		u = "http://localhost:8080"
	}
	return u
}

func newPostsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List published posts of a running site",
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := client.New(siteURL(cmd)).ListPosts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tLIKES\tDISLIKES\tTITLE")
			for _, p := range posts {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", p.ID, p.Slug, p.Likes, p.Dislikes, p.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("url", "", "site base URL (default $SITE_URL or http://localhost:8080)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum posts to list")
	return cmd
}

func newVoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "vote <post-id> <like|dislike>",
		Short:     "Cast a vote on a post as an anonymous visitor",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"like", "dislike"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[1] != "like" && args[1] != "dislike" {
				return fmt.Errorf("vote must be like or dislike, got %q", args[1])
			}
			c := client.New(siteURL(cmd))
			if _, err := c.Votes(cmd.Context(), args[0]); err != nil {
				return err
			}
			s, err := c.Vote(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			mine := s.UserVote
			if mine == "" {
				mine = "none"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "likes=%d dislikes=%d mine=%s\n", s.Likes, s.Dislikes, mine)
			return nil
		},
	}
	cmd.Flags().String("url", "", "site base URL (default $SITE_URL or http://localhost:8080)")
	return cmd
}
