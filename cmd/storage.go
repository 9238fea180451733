package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage songs in cloud storage",
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List objects in the bucket",
	Args:  cobra.NoArgs,
	RunE:  runStorageList,
}

var storageUploadCmd = &cobra.Command{
	Use:   "upload PATH",
	Short: "Upload a file and print its public URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runStorageUpload,
}

func init() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageListCmd)
	storageCmd.AddCommand(storageUploadCmd)
	storageListCmd.Flags().String("prefix", "", "Only list objects starting with this prefix")
	storageUploadCmd.Flags().String("dest", "", "Object name (default: file name)")
}

func runStorageList(cmd *cobra.Command, args []string) error {
	prefix, _ := cmd.Flags().GetString("prefix")

	store, err := newStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := store.List(cmd.Context(), prefix)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	fmt.Fprintf(out, "Total objects: %d\n", len(names))
	return nil
}

func runStorageUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	dest, _ := cmd.Flags().GetString("dest")
	if dest == "" {
		dest = filepath.Base(path)
	}

	store, err := newStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	url, err := store.Upload(cmd.Context(), path, dest)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
