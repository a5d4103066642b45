// Package config provides configuration parsing for the templatestore
// command.
//
// The configuration is stored in templatestore.yaml. Every field is
// optional; missing fields take the defaults returned by New.
//
// # Configuration File Structure
//
//	inspector:
//	  addr: localhost:7070
//	log:
//	  level: info      # debug, info, warn, error
//	  format: text     # text or json
//	scheduler:
//	  mode: immediate  # immediate or deferred
//	  budget: 1000     # effect runs per flush, 0 for unlimited
//	metrics:
//	  enabled: true
//	  namespace: templatestore
//
// # Usage
//
//	cfg, err := config.LoadFile("templatestore.yaml")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	sched := reactive.NewScheduler(cfg.SchedulerMode())
package config
