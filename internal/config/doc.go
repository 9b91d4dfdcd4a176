// Package config provides configuration parsing for plowfinder.
//
// The configuration is stored in plowfinder.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "site": {
//	    "name": "MN Plow Finder",
//	    "url": "https://mnplowfinder.com"
//	  },
//	  "data": {
//	    "providers": "data/providers.json"
//	  },
//	  "build": {
//	    "output": "dist",
//	    "shell": "client/dist/index.html",
//	    "assets": "client/dist",
//	    "strictCollisions": false
//	  },
//	  "serve": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "hotReload": true
//	  },
//	  "publish": {
//	    "bucket": "mnplowfinder-site",
//	    "prefix": "",
//	    "region": "us-east-2",
//	    "prune": true
//	  }
//	}
//
// Relative paths are resolved against the directory holding
// plowfinder.json.
package config
