package main

/*VERSION ... */
const VERSION = "0.7.0"
