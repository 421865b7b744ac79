// Package iface classifies hardware interface usage (GPIO, UART, SPI, ...)
// from include directives and call sites.
//
// Evidence is gathered by independent pure functions and combined with
// Merge, which only unions sets and sums counts. The order in which
// evidence is collected therefore never changes the result.
package iface

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/mcuscope/pkg/models"
)

// InterfaceDef describes one interface category and the function-name
// prefixes that indicate its use.
type InterfaceDef struct {
	Name        string
	Description string
	Vendor      string
	Patterns    []string
}

// LibraryDef describes a vendor library recognized by header file name.
type LibraryDef struct {
	ID         string
	Name       string
	Vendor     string
	Header     *regexp.Regexp
	Interfaces []string
}

// Hint maps a header-name substring to an interface.
type Hint struct {
	Substr    string
	Interface string
}

// Catalog holds the pattern tables used for classification. A Catalog is
// read-only once built.
type Catalog struct {
	Interfaces []InterfaceDef // sorted by name
	Libraries  []LibraryDef
	Hints      []Hint
}

var defaultInterfaces = []InterfaceDef{
	{Name: "GPIO", Description: "General-purpose input/output", Patterns: []string{"HAL_GPIO_", "LL_GPIO_", "GPIO_"}},
	{Name: "UART", Description: "Serial communication interface", Patterns: []string{"HAL_UART_", "HAL_USART_", "LL_USART_", "LPUART_", "USART_", "UART_"}},
	{Name: "SPI", Description: "Serial peripheral interface", Patterns: []string{"HAL_SPI_", "LL_SPI_", "LPSPI_", "SPI_"}},
	{Name: "I2C", Description: "I2C bus interface", Patterns: []string{"HAL_I2C_", "LL_I2C_", "LPI2C_", "I2C_"}},
	{Name: "TIMER", Description: "Timer interface", Patterns: []string{"HAL_TIM_", "LL_TIM_", "CTIMER_", "TIM_"}},
	{Name: "ADC", Description: "Analog-to-digital converter", Patterns: []string{"HAL_ADC_", "LL_ADC_", "ADC_"}},
	{Name: "DMA", Description: "Direct memory access", Patterns: []string{"HAL_DMA_", "LL_DMA_", "EDMA_", "DMA_"}},
	{Name: "CLOCK", Description: "Clock management", Patterns: []string{"HAL_RCC_", "LL_RCC_", "CLOCK_", "RCC_"}},
	{Name: "NVIC", Description: "Nested vectored interrupt controller", Patterns: []string{"NVIC_"}},
	{Name: "SYSTICK", Description: "System tick timer", Patterns: []string{"SysTick_"}},
	{Name: "CAN", Description: "CAN bus interface", Patterns: []string{"FLEXCAN_", "CAN_"}},
	{Name: "USB", Description: "USB interface", Patterns: []string{"USBD_", "USB_"}},
	{Name: "ETH", Description: "Ethernet interface", Patterns: []string{"ENET_", "ETH_"}},
	{Name: "FLASH", Description: "Flash memory interface", Patterns: []string{"FLASH_", "FLEXSPI_"}},
	{Name: "RTC", Description: "Real-time clock", Patterns: []string{"RTC_"}},
	{Name: "WATCHDOG", Description: "Watchdog timer", Patterns: []string{"IWDG_", "WWDG_", "WDOG_"}},
}

var defaultLibraries = []LibraryDef{
	{
		ID: "STM32_HAL", Name: "STM32 HAL Library", Vendor: "STMicroelectronics",
		Header:     headerPattern(`stm32[a-z0-9]+_hal.*\.h`),
		Interfaces: []string{"GPIO", "UART", "SPI", "I2C", "TIMER", "ADC", "DMA", "CLOCK"},
	},
	{
		ID: "STM32_LL", Name: "STM32 Low Layer Library", Vendor: "STMicroelectronics",
		Header:     headerPattern(`stm32[a-z0-9]+_ll.*\.h`),
		Interfaces: []string{"GPIO", "UART", "SPI", "I2C", "TIMER", "ADC", "DMA"},
	},
	{
		ID: "NXP_SDK", Name: "NXP MCUXpresso SDK", Vendor: "NXP",
		Header:     headerPattern(`fsl_.*\.h`),
		Interfaces: []string{"GPIO", "UART", "SPI", "I2C", "TIMER", "ADC", "DMA", "CLOCK"},
	},
	{
		ID: "NXP_LPCOPEN", Name: "NXP LPCOpen", Vendor: "NXP",
		Header:     headerPattern(`chip\.h|lpc[0-9a-z_]*\.h`),
		Interfaces: []string{"GPIO", "UART", "SPI", "I2C", "TIMER", "ADC"},
	},
	{
		ID: "ARM_CMSIS", Name: "ARM CMSIS", Vendor: "ARM",
		Header:     headerPattern(`core_cm[0-9]+\.h|cmsis_.*\.h`),
		Interfaces: []string{"NVIC", "SYSTICK"},
	},
}

var defaultHints = []Hint{
	{"gpio", "GPIO"},
	{"uart", "UART"},
	{"usart", "UART"},
	{"spi", "SPI"},
	{"i2c", "I2C"},
	{"tim", "TIMER"},
	{"timer", "TIMER"},
	{"adc", "ADC"},
	{"dma", "DMA"},
	{"rcc", "CLOCK"},
	{"clock", "CLOCK"},
	{"can", "CAN"},
	{"usb", "USB"},
	{"eth", "ETH"},
	{"flash", "FLASH"},
	{"rtc", "RTC"},
	{"iwdg", "WATCHDOG"},
	{"wwdg", "WATCHDOG"},
}

// headerPattern anchors a library pattern at the start of a header name.
func headerPattern(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + expr + `)`)
}

// DefaultCatalog returns the built-in interface, library and hint tables.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Interfaces: make([]InterfaceDef, len(defaultInterfaces)),
		Libraries:  append([]LibraryDef(nil), defaultLibraries...),
		Hints:      append([]Hint(nil), defaultHints...),
	}
	for i, def := range defaultInterfaces {
		def.Patterns = append([]string(nil), def.Patterns...)
		def.Vendor = VendorFor(def.Patterns)
		c.Interfaces[i] = def
	}
	c.sortInterfaces()
	return c
}

// WithPatterns returns a copy of the catalog in which the named interfaces
// use the given patterns. Unknown names add new interfaces. Vendors are
// derived again from the new patterns.
func (c *Catalog) WithPatterns(overrides map[string][]string) *Catalog {
	out := c.clone()
	for name, patterns := range overrides {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" || len(patterns) == 0 {
			continue
		}
		def := InterfaceDef{
			Name:        name,
			Description: fmt.Sprintf("%s interface", name),
			Patterns:    append([]string(nil), patterns...),
		}
		def.Vendor = VendorFor(def.Patterns)
		if i := out.index(name); i >= 0 {
			def.Description = out.Interfaces[i].Description
			out.Interfaces[i] = def
			continue
		}
		out.Interfaces = append(out.Interfaces, def)
	}
	out.sortInterfaces()
	return out
}

// WithHints returns a copy of the catalog with extra header-name hints.
// Keys are matched case-insensitively.
func (c *Catalog) WithHints(extra map[string]string) *Catalog {
	out := c.clone()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Hints = append(out.Hints, Hint{Substr: strings.ToLower(k), Interface: strings.ToUpper(extra[k])})
	}
	return out
}

// Interface returns the definition for name.
func (c *Catalog) Interface(name string) (InterfaceDef, bool) {
	if i := c.index(name); i >= 0 {
		return c.Interfaces[i], true
	}
	return InterfaceDef{}, false
}

// NewUsage returns an empty usage record for the named interface.
func (c *Catalog) NewUsage(name string) *models.InterfaceUsage {
	def, _ := c.Interface(name)
	return models.NewInterfaceUsage(name, def.Description, def.Vendor)
}

func (c *Catalog) index(name string) int {
	for i := range c.Interfaces {
		if c.Interfaces[i].Name == name {
			return i
		}
	}
	return -1
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		Interfaces: make([]InterfaceDef, len(c.Interfaces)),
		Libraries:  append([]LibraryDef(nil), c.Libraries...),
		Hints:      append([]Hint(nil), c.Hints...),
	}
	copy(out.Interfaces, c.Interfaces)
	return out
}

func (c *Catalog) sortInterfaces() {
	sort.Slice(c.Interfaces, func(i, j int) bool { return c.Interfaces[i].Name < c.Interfaces[j].Name })
}

// VendorFor attributes an interface to a vendor from its patterns. The
// first rule that any pattern satisfies wins.
func VendorFor(patterns []string) string {
	switch {
	case anyPattern(patterns, func(p string) bool { return strings.Contains(p, "HAL_") }):
		return models.VendorSTM32
	case anyPattern(patterns, func(p string) bool {
		return strings.HasPrefix(p, "LP") || strings.HasPrefix(p, "FLEX") || strings.HasPrefix(p, "MCX")
	}):
		return models.VendorNXP
	case anyPattern(patterns, func(p string) bool { return strings.Contains(p, "Chip_") }):
		return models.VendorNXPLPC
	case anyPattern(patterns, func(p string) bool { return p == "NVIC_" || p == "SysTick_" }):
		return models.VendorARMCMSIS
	default:
		return models.VendorGeneric
	}
}

func anyPattern(patterns []string, match func(string) bool) bool {
	for _, p := range patterns {
		if match(p) {
			return true
		}
	}
	return false
}
