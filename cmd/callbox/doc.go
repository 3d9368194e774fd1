// Command callbox is the operator CLI for the callbox daemon: uploading
// calls, browsing records, curating tags, and exporting reports.
package main
