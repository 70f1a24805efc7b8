// Package preflight provides readiness checks for the filesystem paths,
// store and upstream endpoint that licensesync depends on.
//
// These checks run in two contexts:
//   - The CLI "licensesync doctor" command runs RunAll and prints each result.
//   - The daemon runs RunAll at startup and logs failures as warnings so a
//     misconfigured deployment is visible before the first scheduled run.
//
// Optional features (dump directory, SFTP export) are only checked when
// configured.
package preflight
