// Command boorudl is the booru-dl CLI: search, post and pool ingest
// modes over the extract-filter-fetch pipeline, built on cobra/viper per
// the teacher's cmd/civitai-downloader layout.
package main

import "booru-dl/cmd/boorudl/cmd"

func main() {
	cmd.Execute()
}
