package mcpserver

// Tool descriptions double as usage guidance for the calling model.

func describeAnalyzeProject() string {
	return `Analyzes a C/C++ microcontroller firmware project: extracts functions and calls, builds the call graph from the entry point, and detects which hardware peripherals and vendor libraries are in use.

USE WHEN:
- Getting a first overview of an unfamiliar embedded codebase
- Checking which peripherals (GPIO, UART, SPI, I2C, timers, DMA...) firmware actually drives
- Identifying the vendor SDK (STM32 HAL, NXP SDK, CMSIS...) a project is built on
- Comparing two revisions of the same firmware

INTERPRETING RESULTS:
- entry_found=false: the entry point (default "main") is not defined; reachability and the call tree are empty
- main_reachable vs defined_functions: a large gap means much code is not reached from the entry point (ISRs, dead code, callbacks)
- interface_evidence=call_graph: interfaces are counted only from calls in reachable functions
- interface_evidence=source_scan: no call graph was available, so all source text was scanned
- Libraries are ranked by score; the first one is the most likely SDK
- diagnostics list files that could not be read or parsed

METRICS RETURNED:
- function_stats, call_stats, file_stats
- libraries with header evidence
- interface summary: enabled interfaces with call counts and sample functions
- top_level: functions called directly by the entry point
- recursion: self-recursive functions and mutual-recursion cycles`
}

func describeCallTree() string {
	return `Renders the call tree of an MCU firmware project from its entry point, bounded by depth.

USE WHEN:
- Following the startup and main loop of firmware
- Explaining control flow before touching a function
- Starting the tree at an interrupt handler or task instead of main

INTERPRETING RESULTS:
- Each level is indented by two spaces and prefixed with "|- "
- A function can appear under several parents
- A function never appears twice on one path, so recursion is cut at the repeat
- Functions outside the analyzed sources (vendor HAL calls) are not shown

METRICS RETURNED:
- entry_point, entry_found, max_depth
- tree: the rendered text tree
- recursion: self-recursive functions and cycles`
}

func describeInterfaces() string {
	return `Reports hardware interface usage (GPIO, UART, SPI, I2C, ADC, TIMER, DMA, PWM, CAN, USB, RTC, WDG...) and the vendor libraries detected in an MCU project.

USE WHEN:
- Auditing which peripherals firmware depends on before porting it
- Checking whether a peripheral is driven from reachable code or only included
- Explaining the role of vendor headers in a project

INTERPRETING RESULTS:
- enabled=true means at least one matching call was found
- call_count counts matching call sites, not distinct functions
- files lists where matches occurred, including header evidence
- vendor is inferred from the interface patterns: HAL_ for STM32, LP/FLEX/MCX for NXP, Chip_ for NXP LPC
- Set all=true to include interfaces with header evidence but no calls

METRICS RETURNED:
- interface_usage keyed by interface name
- libraries ranked by score
- summary with vendor distribution`
}

func describeFunctions() string {
	return `Lists the functions defined or declared in an MCU project, or details one function with its callers and callees.

USE WHEN:
- Finding where a function is defined
- Listing only the functions reachable from the entry point
- Checking who calls a driver routine before changing it

INTERPRETING RESULTS:
- kind is "definition" or "declaration"; a name keeps its first definition
- reachable=true means the function is reachable from the entry point
- calls and called_by count distinct functions

METRICS RETURNED:
- functions: name, file, line, kind, static, inline, reachable, calls, called_by
- With name set: the function row plus sorted callers and callees`
}
