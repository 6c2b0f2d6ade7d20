// Package main provides the rich menu admin CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/garyellow/travel-linebot-go/internal/config"
	"github.com/garyellow/travel-linebot-go/internal/lineutil"
	"github.com/spf13/cobra"
)

// maxImageBytes is the LINE upload limit for rich menu images.
const maxImageBytes = 1 << 20

func main() {
	root := newRootCommand(func() (menuAPI, error) {
		cfg, err := config.LoadForMode(config.RichMenuMode)
		if err != nil {
			return nil, err
		}
		return newLineMenuAPI(cfg.LineChannelToken)
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(newAPI func() (menuAPI, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           "richmenu",
		Short:         "Manage the TravelBot LINE rich menu",
		SilenceUsage: true,
	}
	root.AddCommand(newCreateCommand(newAPI))
	root.AddCommand(newListCommand(newAPI))
	root.AddCommand(newDeleteCommand(newAPI))
	return root
}

func newCreateCommand(newAPI func() (menuAPI, error)) *cobra.Command {
	var (
		imagePath  string
		setDefault bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the six-area menu and upload its image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contentType, err := imageContentType(imagePath)
			if err != nil {
				return err
			}
			img, err := os.Open(imagePath)
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer img.Close()
			if info, err := img.Stat(); err != nil {
				return fmt.Errorf("stat image: %w", err)
			} else if info.Size() > maxImageBytes {
				return fmt.Errorf("image is %d bytes, LINE accepts at most %d", info.Size(), maxImageBytes)
			}

			api, err := newAPI()
			if err != nil {
				return err
			}
			id, err := api.Create(lineutil.RichMenu())
			if err != nil {
				return fmt.Errorf("create rich menu: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Rich menu created:", id)

			if err := api.UploadImage(id, contentType, img); err != nil {
				return fmt.Errorf("upload image for %s: %w", id, err)
			}
			fmt.Fprintln(out, "Rich menu image uploaded")

			if setDefault {
				if err := api.SetDefault(id); err != nil {
					return fmt.Errorf("set default rich menu: %w", err)
				}
				fmt.Fprintln(out, "Rich menu set as default")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "PNG or JPEG image, 2500x1686")
	cmd.Flags().BoolVar(&setDefault, "default", false, "make the new menu the default for all users")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newListCommand(newAPI func() (menuAPI, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rich menus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newAPI()
			if err != nil {
				return err
			}
			menus, err := api.List()
			if err != nil {
				return fmt.Errorf("list rich menus: %w", err)
			}
			// No default set is reported as an error by the API.
			defaultID, _ := api.DefaultID()

			out := cmd.OutOrStdout()
			if len(menus) == 0 {
				fmt.Fprintln(out, "No rich menus")
				return nil
			}
			for _, m := range menus {
				marker := " "
				if m.ID == defaultID {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\t%s\t%s\n", marker, m.ID, m.Name, m.ChatBarText)
			}
			return nil
		},
	}
}

func newDeleteCommand(newAPI func() (menuAPI, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rich menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPI()
			if err != nil {
				return err
			}
			if err := api.Delete(args[0]); err != nil {
				return fmt.Errorf("delete rich menu %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rich menu deleted:", args[0])
			return nil
		},
	}
}

func imageContentType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case "":
		return "", errors.New("image path has no extension")
	default:
		return "", fmt.Errorf("unsupported image type %q, use PNG or JPEG", filepath.Ext(path))
	}
}
