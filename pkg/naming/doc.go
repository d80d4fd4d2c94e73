// Package naming turns a naming template and a software snapshot into the
// relative directory the software is relocated to.
//
// Templates are literal text plus the tokens {Category}, {Name}, {Version},
// {Vendor} and {Date}, matched case-insensitively. '/' in a template starts
// a nested directory. Field values are sanitized before substitution so a
// vendor called "A/B" can never add a level or escape the base directory.
package naming
