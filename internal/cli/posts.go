package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/quill/internal/client/pages"
	"github.com/mcoot/quill/internal/client/routeguard"
	"github.com/mcoot/quill/internal/client/view"
	"github.com/mcoot/quill/internal/model"
)

func newPostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Read and write posts",
	}

	cmd.AddCommand(newPostsListCmd())
	cmd.AddCommand(newPostsShowCmd())
	cmd.AddCommand(newPostsMineCmd())
	cmd.AddCommand(newPostsWriteCmd())
	cmd.AddCommand(newPostsEditCmd())
	cmd.AddCommand(newPostsPublishCmd())
	cmd.AddCommand(newPostsUnpublishCmd())
	cmd.AddCommand(newPostsDeleteCmd())

	return cmd
}

// settled waits for a page load and returns its data or error
func settled[T any](wait func(), state func() view.State[T]) (T, error) {
	wait()
	st := state()
	if st.Status == view.Error {
		var zero T
		return zero, st.Err
	}
	return st.Data, nil
}

func newPostsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *core) error {
				ctx, cancel := timeout(cmd.Context())
				defer cancel()

				home := pages.NewHome(ctx, client, c.store, nil)
				defer home.Close()
				list, err := settled(home.Wait, home.State)
				if err != nil {
					return err
				}
				output(cmd).Print(list)
				return nil
			})
		},
	}
}

func newPostsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *core) error {
				ctx, cancel := timeout(cmd.Context())
				defer cancel()

				page := pages.NewPost(ctx, client, c.store, nil)
				defer page.Close()
				page.Show(model.PostID(args[0]))
				post, err := settled(page.Wait, page.State)
				if err != nil {
					return err
				}
				output(cmd).Print(post)
				return nil
			})
		},
	}
}

func newPostsMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your posts, drafts included",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *core) error {
				if err := c.enter(cmd.Context(), routeguard.Profile.Path); err != nil {
					return err
				}
				ctx, cancel := timeout(cmd.Context())
				defer cancel()

				profile := pages.NewProfile(ctx, client, c.store, nil)
				defer profile.Close()
				data, err := settled(profile.Wait, profile.State)
				if err != nil {
					return err
				}
				output(cmd).Print(data.Posts)
				return nil
			})
		},
	}
}

type postFlags struct {
	title       string
	content     string
	contentFile string
	coverImage  string
}

func (f *postFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Post title")
	cmd.Flags().StringVar(&f.content, "content", "", "Post content")
	cmd.Flags().StringVar(&f.contentFile, "content-file", "", "Read content from a file, or - for stdin")
	cmd.Flags().StringVar(&f.coverImage, "cover-image", "", "Cover image URL")
}

// apply copies the flags the user set onto the editor
func (f *postFlags) apply(cmd *cobra.Command, editor *pages.Editor) error {
	if cmd.Flags().Changed("title") {
		editor.SetTitle(f.title)
	}
	if cmd.Flags().Changed("content") || cmd.Flags().Changed("content-file") {
		content, err := readContent(cmd, f.content, f.contentFile)
		if err != nil {
			return err
		}
		editor.SetContent(content)
	}
	if cmd.Flags().Changed("cover-image") {
		editor.SetCoverImage(f.coverImage)
	}
	return nil
}

// editorOptions push autosave out past the life of the command, which saves explicitly
func editorOptions() []pages.EditorOption {
	return []pages.EditorOption{
		pages.WithAutosaveDelay(time.Hour),
		pages.WithEditorLogger(logger),
	}
}

func newPostsWriteCmd() *cobra.Command {
	var flags postFlags
	var publish bool

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a new post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *core) error {
				if err := c.enter(cmd.Context(), routeguard.Write.Path); err != nil {
					return err
				}
				ctx, cancel := timeout(cmd.Context())
				defer cancel()

				editor, err := pages.NewEditor(ctx, client, c.store, editorOptions()...)
				if err != nil {
					return err
				}
				defer editor.Close()
				if err := flags.apply(cmd, editor); err != nil {
					return err
				}
				return save(ctx, cmd, editor, publish)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish immediately instead of saving a draft")
	return cmd
}

func newPostsEditCmd() *cobra.Command {
	var flags postFlags
	var publish bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEditor(cmd, args[0], func(ctx context.Context, editor *pages.Editor) error {
				if err := flags.apply(cmd, editor); err != nil {
					return err
				}
				return save(ctx, cmd, editor, publish)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish after saving")
	return cmd
}

func save(ctx context.Context, cmd *cobra.Command, editor *pages.Editor, publish bool) error {
	var post *model.Post
	var err error
	if publish {
		post, err = editor.Publish(ctx)
	} else {
		post, err = editor.Save(ctx)
	}
	if err != nil {
		return err
	}
	output(cmd).Print(post)
	return nil
}

// withEditor opens the post at the edit route and runs fn on it
func withEditor(cmd *cobra.Command, id string, fn func(context.Context, *pages.Editor) error) error {
	return withCore(cmd.Context(), func(c *core) error {
		if err := c.enter(cmd.Context(), "/edit/"+id); err != nil {
			return err
		}
		ctx, cancel := timeout(cmd.Context())
		defer cancel()

		editor, err := pages.OpenEditor(ctx, client, c.store, model.PostID(id), editorOptions()...)
		if err != nil {
			return err
		}
		defer editor.Close()
		return fn(ctx, editor)
	})
}

func newPostsPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEditor(cmd, args[0], func(ctx context.Context, editor *pages.Editor) error {
				post, err := editor.Publish(ctx)
				if err != nil {
					return err
				}
				output(cmd).Print(post)
				return nil
			})
		},
	}
}

func newPostsUnpublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpublish <id>",
		Short: "Move one of your posts back to drafts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEditor(cmd, args[0], func(ctx context.Context, editor *pages.Editor) error {
				post, err := editor.Unpublish(ctx)
				if err != nil {
					return err
				}
				output(cmd).Print(post)
				return nil
			})
		},
	}
}

func newPostsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEditor(cmd, args[0], func(ctx context.Context, editor *pages.Editor) error {
				if err := editor.Delete(ctx); err != nil {
					return err
				}
				output(cmd).PrintMessage("Post deleted")
				return nil
			})
		},
	}
}
