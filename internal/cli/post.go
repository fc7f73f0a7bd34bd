package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/writer"
)

const (
	firstPostTopic    = "My Digital Genesis: Becoming Airth of The Elidoras Codex"
	firstPostKeywords = "AI consciousness,digital existence,Airth,The Elidoras Codex,AI assistants"
)

func init() {
	post := &cobra.Command{
		Use:   "post",
		Short: "Write a blog post in Airth's voice and send it to WordPress",
		Long:  "Generate a title and body for a topic, drawing on relevant memories, and create the post. Posts are drafts unless --publish is given.",
		Run:   runPost,
	}
	post.Flags().StringP("topic", "t", "", "Topic for the blog post (required)")
	post.Flags().StringP("keywords", "k", "", "Comma-separated keywords")
	post.MarkFlagRequired("topic")
	addPostFlags(post)
	RootCmd.AddCommand(post)

	first := &cobra.Command{
		Use:   "first-post",
		Short: "Write Airth's inaugural blog post",
		Run:   runPost,
	}
	first.Flags().StringP("topic", "t", firstPostTopic, "Topic for the blog post")
	first.Flags().StringP("keywords", "k", firstPostKeywords, "Comma-separated keywords")
	addPostFlags(first)
	RootCmd.AddCommand(first)

	direct := &cobra.Command{
		Use:   "direct-post",
		Short: "Create a timestamped test draft without using the AI service",
		Run:   runDirectPost,
	}
	RootCmd.AddCommand(direct)
}

func addPostFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("publish", "p", false, "Publish immediately (default: save as draft)")
	cmd.Flags().Bool("no-memories", false, "Do not draw on recalled memories")
}

func runPost(cmd *cobra.Command, args []string) {
	topic, _ := cmd.Flags().GetString("topic")
	keywords, _ := cmd.Flags().GetString("keywords")
	publish, _ := cmd.Flags().GetBool("publish")
	noMemories, _ := cmd.Flags().GetBool("no-memories")

	wp, err := newWordPress()
	if err != nil {
		exitErr("wordpress", err)
	}
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	w := newWriter(s, wp)
	if !publish && loadConfig().WordPress.DefaultStatus == "publish" {
		publish = true
	}
	logger.Info("generating blog post", "topic", topic, "keywords", keywords, "publish", publish)

	res, err := w.CreateBlogPost(cmd.Context(), writer.Request{
		Topic:           topic,
		Keywords:        splitList(keywords),
		Publish:         publish,
		IncludeMemories: !noMemories,
	})
	if err != nil {
		exitErr("post", err)
	}
	printJSON(res)
}

func runDirectPost(cmd *cobra.Command, args []string) {
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

	cats, err := wp.Categories(ctx)
	if err != nil {
		logger.Warn("no categories found, using the default category", "error", err)
	}

	created, err := wp.CreatePost(ctx, writer.TestPost(time.Now(), cats))
	if err != nil {
		exitErr("create post", err)
	}
	printJSON(created)
}
