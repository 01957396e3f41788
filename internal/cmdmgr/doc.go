// Package cmdmgr is the command console plugin.
//
// It registers a "cmdmgr" command group (alias "cmd") with the host:
//
//	cmdmgr on        start the admin server and reply with the session secret
//	cmdmgr off       stop the admin server
//	cmdmgr status    report server state and the disabled count
//	cmdmgr list      list every command and whether it is enabled
//	cmdmgr toggle X  flip handler X between enabled and disabled
//
// Initialize schedules restoration of the persisted disabled set after a
// delay so that plugins loading later are covered. Terminate stops the admin
// server and hands every disabled handler back to the host.
package cmdmgr
