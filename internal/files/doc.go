// Package files finds sales workbooks on disk.
//
// Discovery lists the workbooks of a directory, newest first, using the same
// extension list the upload validator accepts. Excel lock files ("~$name.xlsx")
// are never listed.
//
//	discovery := files.NewDiscovery("", []string{".xlsx"})
//	latest, err := discovery.Latest("relatorios")
package files
