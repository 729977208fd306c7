package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskdeck/comments"
	"taskdeck/notifications"
)

func newCommentsCmd(a *app) *cobra.Command {
	var (
		replyTo int64
		message string
	)
	cmd := &cobra.Command{
		Use:   "comments <taskId>",
		Short: "Show the comment thread of a task, or post to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			if _, err := a.manager(c, id).Task(cmd.Context(), taskID); err != nil {
				return err
			}

			thread := comments.NewThread(c, taskID, a.cfg.CommentPageSize, a.logger)
			var parent *int64
			if replyTo > 0 {
				parent = &replyTo
			}
			if cmd.Flags().Changed("message") {
				if _, err := thread.SubmitReply(cmd.Context(), parent, message); err != nil {
					return err
				}
			} else {
				if _, err := thread.Refresh(cmd.Context()); err != nil {
					return err
				}
				thread.SetReplyTarget(parent)
			}
			renderThread(a.out, thread.Lines())
			return nil
		},
	}
	cmd.Flags().Int64VarP(&replyTo, "reply-to", "r", 0, "Comment id to reply to")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Comment text to post")
	return cmd
}

func newNotificationsCmd(a *app) *cobra.Command {
	var (
		page int
		read int64
	)
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notifs"},
		Short:   "List your notifications, or mark one read",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			tr := notifications.NewTracker(c, id.UserID, a.cfg.PageSize, a.logger)
			if _, err := tr.FetchPage(cmd.Context(), page, 0); err != nil {
				return err
			}
			if read > 0 {
				if _, err := tr.MarkRead(cmd.Context(), read); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Marked notification %d read\n", read)
			} else if _, err := tr.FetchUnreadCount(cmd.Context()); err != nil {
				return err
			}
			renderNotifications(a.out, tr.Snapshot())
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Page index")
	cmd.Flags().Int64Var(&read, "read", 0, "Notification id to mark read")
	return cmd
}
