package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reconnecthq/reconnect/internal/config"
	"github.com/reconnecthq/reconnect/internal/recorder"
	"github.com/reconnecthq/reconnect/internal/registry"
	"github.com/reconnecthq/reconnect/internal/storage"
)

// --- reconcile ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair duplicate system contacts",
	Long: `Repair duplicate system contacts.

Ensures the Self and Unassigned contacts exist for the configured owner,
then removes any duplicates, keeping the earliest-created of each. Run
against the data directory directly; the server does not need to be up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		reg := registry.New(store, nil)
		if _, _, err := reg.Ensure(cfg.Owner); err != nil {
			return fmt.Errorf("ensuring system contacts: %w", err)
		}

		for _, name := range []string{registry.SelfName, registry.UnassignedName} {
			removed, err := reg.Reconcile(cfg.Owner, name)
			if err != nil {
				return fmt.Errorf("reconciling %s: %w", name, err)
			}
			if removed > 0 {
				printSuccess("Removed %d duplicate %s contact(s)", removed, name)
			} else {
				printStatus(name, "ok")
			}
		}
		return nil
	},
}

// --- capture ---

var captureCmd = &cobra.Command{
	Use:   "capture <audio-file>",
	Short: "Run an audio file through transcription and extraction",
	Long: `Run an audio file through transcription and extraction.

The audio is read through a capture session, submitted to the running
server's /process endpoint, and the structured result printed. With
--save, the reviewed note is filed against the given contacts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening audio file: %w", err)
		}
		defer f.Close()

		device := recorder.NewReaderDevice(f)
		rec := recorder.New(device, nil)
		if err := rec.Start(); err != nil {
			return fmt.Errorf("starting capture: %w", err)
		}
		<-device.Drained()
		clip, err := rec.Stop()
		if err != nil {
			return fmt.Errorf("stopping capture: %w", err)
		}
		printStep("Captured %d bytes from %s", len(clip.Data), path)

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("audio", filepath.Base(path))
		if err != nil {
			return fmt.Errorf("building upload: %w", err)
		}
		if _, err := fw.Write(clip.Data); err != nil {
			return fmt.Errorf("building upload: %w", err)
		}
		mw.Close()

		printStep("Processing...")
		resp, err := client.do("POST", "/process", mw.FormDataContentType(), &buf)
		if err != nil {
			return err
		}

		var result struct {
			Transcript string          `json:"transcript"`
			Extracted  json.RawMessage `json:"extracted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Printf("%s\n%s\n\n", paint(ansiBold, "Transcript:"), result.Transcript)
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, result.Extracted, "", "  "); err == nil {
			fmt.Printf("%s\n%s\n", paint(ansiBold, "Extracted:"), pretty.String())
		}

		saveTo, _ := cmd.Flags().GetString("save")
		if saveTo == "" {
			return nil
		}

		contactIDs := strings.Split(saveTo, ",")
		for i := range contactIDs {
			contactIDs[i] = strings.TrimSpace(contactIDs[i])
		}
		saveReq := map[string]any{
			"contact_ids": contactIDs,
			"transcript":  result.Transcript,
			"occurred_at": time.Now().UTC().Format(time.RFC3339),
			"extracted":   result.Extracted,
		}
		saveResp, err := client.postJSON("/interactions", saveReq)
		if err != nil {
			return err
		}
		// A partial failure still reports the committed saves, so decode
		// the body regardless of status.
		defer saveResp.Body.Close()
		var saved struct {
			Saved []struct {
				InteractionID string `json:"interaction_id"`
				ContactID     string `json:"contact_id"`
			} `json:"saved"`
			FailedContactID string `json:"failed_contact_id"`
			Error           string `json:"error"`
		}
		if err := json.NewDecoder(saveResp.Body).Decode(&saved); err != nil {
			return fmt.Errorf("decoding save response: %w", err)
		}
		for _, s := range saved.Saved {
			printSuccess("Filed note %s against contact %s", s.InteractionID, s.ContactID)
		}
		if saved.FailedContactID != "" {
			printError("Save stopped at contact %s: %s", saved.FailedContactID, saved.Error)
			return fmt.Errorf("partial save")
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().String("save", "", "comma-separated contact ids to file the note against")
}
