// Package config provides configuration parsing for precache builds.
//
// The configuration is stored in precache.json (or precache.yaml) at the
// project root. Keys follow the option names of the JavaScript build tools
// this format is shared with, so an existing config object can be pasted in
// unchanged:
//
//	{
//	  "globDirectory": "dist",
//	  "globPatterns": ["**/*.{js,css,html}"],
//	  "globIgnores": ["**/*.map"],
//	  "maximumFileSizeToCacheInBytes": 4194304,
//	  "templatedUrls": {
//	    "/shell": ["templates/shell.hbs", "dist/app.css"],
//	    "/version": "2024-05-01"
//	  },
//	  "modifyUrlPrefix": {"dist/": "/"},
//	  "dontCacheBustUrlsMatching": "\\.\\w{8}\\.",
//	  "swDest": "dist/sw.js",
//	  "navigateFallback": "/index.html",
//	  "skipWaiting": true,
//	  "clientsClaim": true
//	}
//
// templatedUrls and modifyUrlPrefix are ordered: the order in the file is
// the order rules are applied.
//
// Unknown keys are not fatal. They are reported by Warnings so a typo does
// not silently change the output.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(config.ModeGenerate); err != nil {
//	    log.Fatal(err)
//	}
package config
