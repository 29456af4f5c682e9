package main

import "fmt"

// icpCallbackNames maps an ICP button name to the simulator callback name
// the Resolver should look up. Exhaustive per the wire protocol's ICP
// button set.
var icpCallbackNames = map[string]string{
	"1": "SimICPTILS", "2": "SimICPALOW", "3": "SimICPTHREE", "4": "SimICPStpt",
	"5": "SimICPCrus", "6": "SimICPSIX", "7": "SimICPMark", "8": "SimICPEIGHT",
	"9": "SimICPNINE", "0": "SimICPZERO",

	"RCL":   "SimICPCLEAR",
	"ENTER": "SimICPEnter",

	"COM1": "SimICPCom1",
	"COM2": "SimICPCom2",

	"IFF":  "SimICPIFF",
	"LIST": "SimICPLIST",

	"A-A": "SimICPAA",
	"A-G": "SimICPAG",

	"icp-wpt-next":     "SimICPNext",
	"icp-wpt-previous": "SimICPPrevious",
	"icp-ded-up":       "SimICPDEDUP",
	"icp-ded-down":     "SimICPDEDDOWN",
	"icp-ded-seq":      "SimICPDEDSEQ",
	"icp-ded-return":   "SimICPResetDED",
}

// icpCallbackName resolves an ICP button name to a simulator callback name.
func icpCallbackName(button string) (string, bool) {
	name, ok := icpCallbackNames[button]
	return name, ok
}

// mfdSuffixes maps a wire MFD identifier to the one-letter suffix used in
// synthesized OSB callback names.
var mfdSuffixes = map[string]string{
	"f16/left-mfd":  "L",
	"f16/right-mfd": "R",
}

// osbCallbackName synthesizes the callback name for an MFD bezel button,
// e.g. mfd="f16/right-mfd", osb="05" -> "SimCBE05R". Returns an error for
// an unrecognized mfd identifier; the caller must not invoke the resolver
// in that case.
func osbCallbackName(mfd, osb string) (string, error) {
	suffix, ok := mfdSuffixes[mfd]
	if !ok {
		return "", fmt.Errorf("icp: unknown mfd %q", mfd)
	}
	return fmt.Sprintf("SimCBE%s%s", osb, suffix), nil
}
