// Package matrixbot exposes the command console in Matrix rooms.
//
// Messages beginning with the configured prefix (default "!") are stripped of
// it and passed to the console as a command line, so "!cmdmgr on" and
// "!cmd list" both work. Replies are sent as notices; multi-line replies are
// also rendered to HTML.
package matrixbot
