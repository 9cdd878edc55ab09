// Package config loads bindery.yaml, the optional configuration file for the
// bindery command.
//
// # Configuration File Structure
//
//	workload:
//	  width: 4
//	  depth: 3
//	  fields: 16
//	  lazies: 4
//	  conditionals: 2
//	  seed: 1
//	  tweenSeconds: 1
//	frames:
//	  count: 600
//	  interval: 16ms
//	runtime:
//	  verifyPassive: true
//	  strictPassive: false
//	log:
//	  level: info
//	  file: bindery.log
//	inspect:
//	  addr: 127.0.0.1:7070
//	report:
//	  output: report.json
//	  s3:
//	    bucket: my-bucket
//	    prefix: runs/
//	    region: us-east-1
//	metrics:
//	  namespace: bindery
//	  subsystem: ui
//	  labels:
//	    host: ci
//	  buckets: [0.0001, 0.001, 0.01, 0.1]
//
// A missing file is not an error; every field has a default. Keys left out
// of the file keep their defaults, while explicit zeros such as depth: 0 are
// kept.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Frames:", cfg.Frames.Count)
package config
