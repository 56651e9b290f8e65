// Package config provides configuration management utilities including
// file watching and signal handling for dynamic configuration reload.
package config

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// ReloadFunc is called when config reload is triggered.
// Returns error if reload fails (logged but doesn't stop the watcher).
// The configPath parameter is the path to the configuration file.
type ReloadFunc func(configPath string) error

// SetupSIGHUPHandler sets up a SIGHUP signal handler for config reload.
// SIGHUP is the standard Unix signal for configuration reload.
// Runs in a goroutine, returns immediately.
//
// The handler:
//   - Listens for SIGHUP signals on a buffered channel
//   - Calls reloadFn when a signal is received
//   - Logs success or failure of the reload operation
//   - Continues listening after reload (reusable handler)
//
// Usage:
//
//	SetupSIGHUPHandler("/path/to/config.yaml", server.ReloadConfig)
//	// Now: kill -HUP <pid> triggers reload
func SetupSIGHUPHandler(configPath string, reloadFn ReloadFunc) {
	// Buffered channel prevents signal loss if the handler is busy
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)

	go func() {
		for {
			<-sighup
			log.Info("SIGHUP received, reloading configuration...")
			if err := reloadFn(configPath); err != nil {
				log.Errorf("Configuration reload failed: %v", err)
			}
		}
	}()

	log.Info("SIGHUP handler configured for config reload")
}

// WatchConfigFile watches the config file for changes and triggers reload.
//
// The watcher observes the directory rather than the file itself: editors
// commonly save atomically (write to a temp file, then rename), which
// replaces the inode and breaks a file-level watch. The directory watch
// catches both direct writes and atomic renames, filtered down to events
// touching the config file.
//
// Returns the watcher for cleanup (caller should defer watcher.Close()).
// Returns an error if watcher creation or directory watch setup fails.
func WatchConfigFile(configPath string, reloadFn ReloadFunc) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(configPath)
	configName := filepath.Base(configPath)

	if err := watcher.Add(configDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != configName {
					continue
				}
				// Write covers in-place edits, Create covers atomic saves
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Info("Config file changed, reloading...")
					if err := reloadFn(configPath); err != nil {
						log.Errorf("Configuration reload failed: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("File watcher error: %v", err)
			}
		}
	}()

	log.Infof("Watching config file: %s", configPath)
	return watcher, nil
}
